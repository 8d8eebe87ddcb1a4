package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-hub/internal/data"
)

func reading(id string, ts int64) data.Reading {
	return data.Reading{SensorID: id, Temperature: data.Float(21), TS: ts}
}

func TestUpsertReading_AutoRegisters(t *testing.T) {
	s := NewMemoryStore()

	meta := data.SensorMeta{Name: "bed-north", Zone: "Unknown", Plant: "Unknown"}
	sensor, created := s.UpsertReading(meta, reading("s-1", 1000))

	assert.True(t, created)
	assert.Equal(t, "s-1", sensor.Meta.ID)
	assert.Equal(t, "bed-north", sensor.Meta.Name)
	require.NotNil(t, sensor.LatestReading)
	assert.Equal(t, int64(1000), sensor.LatestReading.TS)
	assert.Equal(t, 1, s.SensorCount())

	// metadata is not overwritten by later payloads
	sensor, created = s.UpsertReading(data.SensorMeta{Name: "renamed"}, reading("s-1", 2000))
	assert.False(t, created)
	assert.Equal(t, "bed-north", sensor.Meta.Name)
	assert.Equal(t, int64(2000), sensor.LatestReading.TS)
}

func TestUpsertReading_HistoryBounded(t *testing.T) {
	s := NewMemoryStore()

	total := HistoryCapacity + 40
	for i := 0; i < total; i++ {
		s.UpsertReading(data.SensorMeta{}, reading("s-1", int64(i)))
	}

	h := s.History("s-1", time.UnixMilli(0))
	require.Len(t, h, HistoryCapacity)
	assert.Equal(t, int64(total-HistoryCapacity), h[0].TS, "oldest entries are evicted first")
	assert.Equal(t, int64(total-1), h[len(h)-1].TS)
	for i := 1; i < len(h); i++ {
		assert.LessOrEqual(t, h[i-1].TS, h[i].TS)
	}
}

func TestHistory_Cutoff(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.UpsertReading(data.SensorMeta{}, reading("s-1", now.Add(-48*time.Hour).UnixMilli()))
	s.UpsertReading(data.SensorMeta{}, reading("s-1", now.Add(-2*time.Hour).UnixMilli()))
	s.UpsertReading(data.SensorMeta{}, reading("s-1", now.UnixMilli()))

	assert.Len(t, s.History("s-1", now.Add(-24*time.Hour)), 2)
	assert.Len(t, s.History("s-1", now.Add(-time.Hour)), 1)
	assert.NotNil(t, s.History("nope", now))
	assert.Empty(t, s.History("nope", now))
}

func TestRecordAlerts_Trim(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.RecordAlerts(nil))

	for i := 0; i < 70; i++ {
		added := s.RecordAlerts([]data.Alert{
			{ID: fmt.Sprintf("a-%d-t", i), Type: data.AlertCritical},
			{ID: fmt.Sprintf("a-%d-h", i), Type: data.AlertWarning},
		})
		require.True(t, added)
	}

	all := s.RecentAlerts(0)
	require.Len(t, all, AlertCapacity)
	assert.Equal(t, "a-69-h", all[0].ID, "newest first")
	assert.Equal(t, "a-20-t", all[len(all)-1].ID)

	recent := s.RecentAlerts(20)
	require.Len(t, recent, 20)
	assert.Equal(t, all[:20], recent)
}

func TestAckAlert(t *testing.T) {
	s := NewMemoryStore()
	s.RecordAlerts([]data.Alert{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	assert.True(t, s.AckAlert("b"))
	assert.False(t, s.AckAlert("b"), "second ack is a no-op")
	assert.False(t, s.AckAlert("missing"))

	ids := []string{}
	for _, a := range s.RecentAlerts(0) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a"}, ids)
}

func TestSchedules(t *testing.T) {
	s := NewMemoryStore()

	zone := "zone-1"
	created := s.CreateSchedule(data.SchedulePatch{ZoneID: &zone})
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)
	assert.Equal(t, "zone-1", created.ZoneID)

	off := false
	disabled := s.CreateSchedule(data.SchedulePatch{Enabled: &off})
	assert.False(t, disabled.Enabled)
	assert.NotEqual(t, created.ID, disabled.ID)

	toggled, ok := s.ToggleSchedule(created.ID)
	require.True(t, ok)
	assert.False(t, toggled.Enabled)

	_, ok = s.ToggleSchedule("missing")
	assert.False(t, ok)

	tm := "07:30"
	patched, err := s.PatchSchedule(created.ID, data.SchedulePatch{Time: &tm})
	require.NoError(t, err)
	assert.Equal(t, "07:30", patched.Time)
	assert.Equal(t, "zone-1", patched.ZoneID)
	assert.False(t, patched.Enabled)

	_, err = s.PatchSchedule("missing", data.SchedulePatch{Time: &tm})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, s.Schedules(), 2)
}

func TestSchedules_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	days := []string{"mon"}
	sch := s.CreateSchedule(data.SchedulePatch{Days: &days})

	list := s.Schedules()
	list[0].Days[0] = "sun"
	list[0].Enabled = false

	again := s.Schedules()
	assert.Equal(t, []string{"mon"}, again[0].Days)
	assert.True(t, again[0].Enabled)
	assert.Equal(t, sch.ID, again[0].ID)
}

func TestConcurrentIngest(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.UpsertReading(data.SensorMeta{}, reading("shared", int64(w*1000+i)))
				s.RecordAlerts([]data.Alert{{ID: fmt.Sprintf("%d-%d", w, i)}})
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, s.History("shared", time.UnixMilli(0)), HistoryCapacity)
	assert.Len(t, s.RecentAlerts(0), AlertCapacity)
}
