package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-hub/internal/data"
)

type fakeHandler struct {
	mu      sync.Mutex
	actions []Action
}

func (f *fakeHandler) Snapshot(fn func(interface{})) {
	fn(map[string]int{"sensors": 2})
}

func (f *fakeHandler) HandleAction(a Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
}

func (f *fakeHandler) received() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Action(nil), f.actions...)
}

func startHub(t *testing.T, buffer int) (*Hub, *fakeHandler) {
	t.Helper()
	h := NewHub(buffer)
	fh := &fakeHandler{}
	h.SetHandler(fh)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, fh
}

func newTestClient(h *Hub, name string) *Client {
	return &Client{hub: h, send: make(chan []byte, h.sendBuffer), addr: name}
}

func next(t *testing.T, c *Client) data.Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev data.Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return data.Event{}
}

func TestRegister_SnapshotFirst(t *testing.T) {
	h, _ := startHub(t, 16)
	c := newTestClient(h, "a")

	h.RegisterClient(c)
	h.Broadcast(data.EventSensorUpdate, map[string]string{"id": "s-1"})

	first := next(t, c)
	assert.Equal(t, data.EventSnapshot, first.Event)
	assert.NotZero(t, first.TS)

	second := next(t, c)
	assert.Equal(t, data.EventSensorUpdate, second.Event)

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected extra message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// alertLog mutates and broadcasts under one lock, like the telemetry
// service does.
type alertLog struct {
	mu     sync.Mutex
	hub    *Hub
	alerts []string
}

func (l *alertLog) raise(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, id)
	l.hub.Broadcast(data.EventNewAlerts, []string{id})
}

func (l *alertLog) Snapshot(fn func(interface{})) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(append([]string(nil), l.alerts...))
}

func (l *alertLog) HandleAction(Action) {}

func ids(t *testing.T, ev data.Event) []string {
	t.Helper()
	raw, err := json.Marshal(ev.Data)
	require.NoError(t, err)
	var out []string
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRegister_SnapshotAfterQueuedEvents(t *testing.T) {
	h := NewHub(64)
	feed := &alertLog{hub: h}
	h.SetHandler(feed)

	// these events are still queued when the viewer joins
	for i := 0; i < 5; i++ {
		feed.raise(fmt.Sprintf("a%d", i))
	}
	c := newTestClient(h, "late")
	h.RegisterClient(c)
	feed.raise("a5")
	feed.raise("a6")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	snap := next(t, c)
	require.Equal(t, data.EventSnapshot, snap.Event)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4"}, ids(t, snap))

	for _, want := range []string{"a5", "a6"} {
		ev := next(t, c)
		require.Equal(t, data.EventNewAlerts, ev.Event)
		assert.Equal(t, []string{want}, ids(t, ev))
	}
	select {
	case msg := <-c.send:
		t.Fatalf("alert delivered twice: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcast_AllClients(t *testing.T) {
	h, _ := startHub(t, 16)
	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = newTestClient(h, fmt.Sprintf("c%d", i))
		h.RegisterClient(clients[i])
	}
	require.Equal(t, 5, h.ClientCount())

	h.Broadcast(data.EventNewAlerts, []data.Alert{{ID: "a1"}})

	for _, c := range clients {
		assert.Equal(t, data.EventSnapshot, next(t, c).Event)
		ev := next(t, c)
		assert.Equal(t, data.EventNewAlerts, ev.Event)
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	h, _ := startHub(t, 16)
	c := newTestClient(h, "a")
	other := newTestClient(h, "b")
	h.RegisterClient(c)
	h.RegisterClient(other)

	h.UnregisterClient(c)
	h.UnregisterClient(c)
	assert.Equal(t, 1, h.ClientCount())

	h.Broadcast(data.EventAlertsUpdated, []data.Alert{})

	assert.Equal(t, data.EventSnapshot, next(t, other).Event)
	assert.Equal(t, data.EventAlertsUpdated, next(t, other).Event)

	// c got its snapshot, then its channel was closed
	<-c.send
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestBroadcast_SlowClientDoesNotBlock(t *testing.T) {
	h, _ := startHub(t, 2)
	slow := newTestClient(h, "slow")
	fast := newTestClient(h, "fast")
	fast.send = make(chan []byte, 64)
	h.RegisterClient(slow)
	h.RegisterClient(fast)

	for i := 0; i < 10; i++ {
		h.Broadcast(data.EventSensorUpdate, i)
	}
	require.Eventually(t, func() bool { return len(fast.send) == 11 }, time.Second, 5*time.Millisecond)

	assert.Len(t, slow.send, 2, "overflow is dropped, not queued")
	assert.Equal(t, 2, h.ClientCount())
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	h, _ := startHub(t, 8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c := newTestClient(h, fmt.Sprintf("c%d", i))
			h.RegisterClient(c)
			h.UnregisterClient(c)
		}(i)
		go func(i int) {
			defer wg.Done()
			h.Broadcast(data.EventSensorUpdate, i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, h.ClientCount())
}

func TestHandle_DispatchesAndDrops(t *testing.T) {
	h, fh := startHub(t, 8)
	c := newTestClient(h, "a")

	h.Handle(c, []byte(`{"action":"ack_alert","id":"a1"}`))
	h.Handle(c, []byte(`not json`))
	h.Handle(c, []byte(`{"action":"reboot"}`))
	h.Handle(c, []byte(`{"type":"trigger_water","data":{"zoneId":"z1"}}`))

	got := fh.received()
	require.Len(t, got, 2)
	assert.Equal(t, Action{Name: ActionAckAlert, ID: "a1"}, got[0])
	assert.Equal(t, Action{Name: ActionTriggerWater, ZoneID: "z1"}, got[1])
}

func TestRun_StopClosesClients(t *testing.T) {
	h := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(h, "a")
	h.RegisterClient(c)
	cancel()
	<-stopped

	_, ok := <-c.send
	assert.False(t, ok)

	// calls after shutdown return instead of blocking
	h.Broadcast(data.EventSensorUpdate, nil)
	h.UnregisterClient(c)
	assert.Equal(t, 0, h.ClientCount())
}
