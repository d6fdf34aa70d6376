package board

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
)

const (
	TypeFrame  = "frame"
	TypeStatus = "status"
)

// Message is what browsers receive over the WebSocket.
type Message struct {
	Type   string        `json:"type"`
	Frame  *models.Frame `json:"frame,omitempty"`
	Status string        `json:"status"`
	At     time.Time     `json:"at"`
}

// Board is the presenter: it keeps the latest frame and status for HTTP reads
// and pushes every change to the hub.
type Board struct {
	hub *Hub
	now func() time.Time

	mu     sync.RWMutex
	frame  models.Frame
	status string
}

func NewBoard(hub *Hub) *Board {
	return &Board{hub: hub, now: time.Now, frame: models.Frame{Trend: models.TrendStable}}
}

// Render implements repository.Presenter.
func (b *Board) Render(_ context.Context, frame models.Frame) {
	b.mu.Lock()
	b.frame = frame
	b.mu.Unlock()
	if b.hub != nil {
		b.hub.Broadcast(Message{Type: TypeFrame, Frame: &frame, At: b.now()})
	}
}

// Status implements repository.Presenter. An empty message clears the status.
func (b *Board) Status(_ context.Context, msg string) {
	b.mu.Lock()
	changed := b.status != msg
	b.status = msg
	b.mu.Unlock()
	if changed && b.hub != nil {
		b.hub.Broadcast(Message{Type: TypeStatus, Status: msg, At: b.now()})
	}
}

// Snapshot returns the last rendered frame and the current status.
func (b *Board) Snapshot() (models.Frame, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame, b.status
}

// Hello is the pair of messages a newly connected client starts from.
func (b *Board) Hello() []interface{} {
	frame, status := b.Snapshot()
	at := b.now()
	return []interface{}{
		Message{Type: TypeFrame, Frame: &frame, At: at},
		Message{Type: TypeStatus, Status: status, At: at},
	}
}
