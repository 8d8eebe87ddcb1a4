// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/metrics"
)

// Handler supplies the hub with the snapshot for new viewers and receives
// the actions viewers send.
type Handler interface {
	// Snapshot calls fn with the current state. No mutation may be
	// committed or broadcast while fn runs.
	Snapshot(fn func(snapshot interface{}))
	HandleAction(a Action)
}

type opKind int

const (
	opBroadcast opKind = iota
	opJoin
	opLeave
	opCount
)

// op is one entry of the hub queue. A join carries the pre-encoded
// snapshot for the new client in msg.
type op struct {
	kind   opKind
	client *Client
	msg    []byte
	reply  chan int
}

// Hub maintains the set of active clients and broadcasts messages.
//
// Delivery is best-effort and at-most-once: every client has a bounded
// send buffer and a message that does not fit is dropped for that client
// only. Order is preserved per client; there is no ordering across
// clients.
type Hub struct {
	clients map[*Client]bool
	queue   chan op
	done    chan struct{}

	handler    Handler
	sendBuffer int
	log        zerolog.Logger
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		queue:      make(chan op, sendBuffer),
		done:       make(chan struct{}),
		sendBuffer: sendBuffer,
		log:        logger.WithComponent("hub"),
	}
}

// SetHandler must be called before Run.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// Run owns the client set. Joins, removals and fan-out are all taken from
// one FIFO queue, so a snapshot lands at exactly the point of the event
// stream it was taken at, and a client can never be sent to after its
// channel is closed. Run returns when ctx is cancelled and closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stop()
			return

		case o := <-h.queue:
			h.apply(o)
		}
	}
}

func (h *Hub) apply(o op) {
	switch o.kind {
	case opJoin:
		h.clients[o.client] = true
		metrics.ViewersConnected.Inc()
		h.log.Info().Str("remote", o.client.addr).Int("clients", len(h.clients)).Msg("client registered")
		if o.msg != nil {
			h.deliver(o.client, o.msg)
		}

	case opLeave:
		if _, ok := h.clients[o.client]; ok {
			delete(h.clients, o.client)
			close(o.client.send)
			metrics.ViewersConnected.Dec()
			h.log.Info().Str("remote", o.client.addr).Int("clients", len(h.clients)).Msg("client unregistered")
		}

	case opBroadcast:
		for client := range h.clients {
			h.deliver(client, o.msg)
		}

	case opCount:
		o.reply <- len(h.clients)
	}
}

// stop closes every registered client and every client still waiting in
// the queue.
func (h *Hub) stop() {
	close(h.done)
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	for {
		select {
		case o := <-h.queue:
			switch o.kind {
			case opJoin:
				close(o.client.send)
			case opCount:
				o.reply <- 0
			}
		default:
			metrics.ViewersConnected.Set(0)
			h.log.Info().Msg("hub stopped")
			return
		}
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		metrics.BroadcastDroppedTotal.Inc()
		h.log.Warn().Str("remote", client.addr).Msg("client send buffer full, message dropped")
	}
}

func (h *Hub) enqueue(o op) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.queue <- o:
		return true
	case <-h.done:
		return false
	}
}

// RegisterClient adds a client to the hub. The handler's snapshot is
// encoded and queued while the handler holds its state still, so every
// event after it describes a change the snapshot does not contain.
func (h *Hub) RegisterClient(client *Client) {
	join := func(msg []byte) {
		if !h.enqueue(op{kind: opJoin, client: client, msg: msg}) {
			close(client.send)
		}
	}
	if h.handler == nil {
		join(nil)
		return
	}
	h.handler.Snapshot(func(snapshot interface{}) {
		msg, err := encode(data.EventSnapshot, snapshot)
		if err != nil {
			h.log.Error().Err(err).Msg("error marshalling snapshot")
		}
		join(msg)
	})
}

// UnregisterClient removes a client. Removing an unknown or already
// removed client is a no-op.
func (h *Hub) UnregisterClient(client *Client) {
	h.enqueue(op{kind: opLeave, client: client})
}

// Broadcast serializes {event, data, ts} once and queues it for every
// connected client. It never waits on a client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("error marshalling event for broadcast")
		return
	}
	if h.enqueue(op{kind: opBroadcast, msg: msg}) {
		metrics.BroadcastEventsTotal.WithLabelValues(event).Inc()
	}
}

// ClientCount returns the number of connected clients, counting every
// registration queued before the call.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	if !h.enqueue(op{kind: opCount, reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	}
}

// Handle dispatches a raw inbound client message. Messages that cannot be
// parsed or name an unknown action are dropped without a reply.
func (h *Hub) Handle(client *Client, raw []byte) {
	action, err := ParseAction(raw)
	if err != nil {
		metrics.ViewerActionsTotal.WithLabelValues("invalid").Inc()
		h.log.Debug().Err(err).Str("remote", client.addr).Msg("dropping client message")
		return
	}
	metrics.ViewerActionsTotal.WithLabelValues(action.Name).Inc()
	if h.handler != nil {
		h.handler.HandleAction(action)
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(data.Event{
		Event: event,
		Data:  payload,
		TS:    time.Now().UnixMilli(),
	})
}
