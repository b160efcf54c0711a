// Package presence tracks connected players and relays their positions to each other.
package presence

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/event"
	"github.com/victornm/satsquest/internal/telemetry"
)

// Conn is the sending half of a client transport. Send is called with the relay lock held,
// it must not block. A Send error is handled as a transport failure of that client.
type Conn interface {
	Send(m Message) error
}

// Rect is the area new sessions spawn in.
type Rect struct {
	MinX   float64
	MinY   float64
	Width  float64
	Height float64
}

var DefaultSpawn = Rect{MinX: 50, MinY: 50, Width: 700, Height: 500}

type Config struct {
	EventBus *event.Bus
	Spawn    Rect
	NewID    func() string
}

type member struct {
	session domain.Session
	conn    Conn
}

// Relay owns the session table. All mutations go through Connect, Move and Disconnect.
type Relay struct {
	eb    *event.Bus
	spawn Rect
	newID func() string

	mu       sync.Mutex
	sessions map[string]*member
}

func NewRelay(c Config) *Relay {
	r := &Relay{
		eb:       c.EventBus,
		spawn:    c.Spawn,
		newID:    c.NewID,
		sessions: make(map[string]*member),
	}

	if r.spawn == (Rect{}) {
		r.spawn = DefaultSpawn
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}

	return r
}

// Connect registers a new session for conn at a random spawn point, sends it the current session
// table and announces it to every other session.
func (r *Relay) Connect(ctx context.Context, conn Conn) domain.Session {
	r.mu.Lock()

	s := domain.Session{
		ID: r.newID(),
		X:  r.spawn.MinX + randUpTo(r.spawn.Width),
		Y:  r.spawn.MinY + randUpTo(r.spawn.Height),
	}
	r.sessions[s.ID] = &member{session: s, conn: conn}

	snapshot := make(map[string]domain.Session, len(r.sessions))
	for id, m := range r.sessions {
		snapshot[id] = m.session
	}

	var failed []string
	if err := conn.Send(currentPlayers(snapshot)); err != nil {
		failed = append(failed, s.ID)
	}
	failed = append(failed, r.broadcast(newPlayer(s), s.ID)...)
	n := len(r.sessions)

	r.mu.Unlock()

	telemetry.PresenceSessions.Set(float64(n))
	slog.InfoContext(ctx, "presence: session connected", "session", s.ID, "sessions", n)

	r.eb.Publish(ctx, domain.EventSessionJoined{Session: s})
	r.drop(ctx, failed)

	return s
}

// Move overwrites the position of session id and relays it to every other session. The mover gets no
// acknowledgement. Coordinates are not checked against the world bounds. Move reports false when
// the session is unknown, nothing is broadcast then.
func (r *Relay) Move(ctx context.Context, id string, x, y float64) bool {
	r.mu.Lock()

	m, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	m.session.X, m.session.Y = x, y
	failed := r.broadcast(playerMoved(m.session), id)

	r.mu.Unlock()

	r.drop(ctx, failed)
	return true
}

// Disconnect removes session id and tells the remaining sessions. It is a no-op for an unknown id.
func (r *Relay) Disconnect(ctx context.Context, id string) bool {
	ok, failed := r.remove(ctx, id)
	r.drop(ctx, failed)
	return ok
}

// Sessions returns a snapshot of the session table.
func (r *Relay) Sessions() map[string]domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss := make(map[string]domain.Session, len(r.sessions))
	for id, m := range r.sessions {
		ss[id] = m.session
	}

	return ss
}

func (r *Relay) remove(ctx context.Context, id string) (bool, []string) {
	r.mu.Lock()

	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return false, nil
	}

	delete(r.sessions, id)
	failed := r.broadcast(playerDisconnected(id), "")
	n := len(r.sessions)

	r.mu.Unlock()

	telemetry.PresenceSessions.Set(float64(n))
	slog.InfoContext(ctx, "presence: session disconnected", "session", id, "sessions", n)

	r.eb.Publish(ctx, domain.EventSessionLeft{SessionID: id})
	return true, failed
}

// drop disconnects sessions whose transport failed. Each removal broadcasts again, which may fail
// other transports in turn.
func (r *Relay) drop(ctx context.Context, ids []string) {
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	for len(pending) > 0 {
		for id := range pending {
			delete(pending, id)

			slog.WarnContext(ctx, "presence: dropping session after send failure", "session", id)
			_, failed := r.remove(ctx, id)
			for _, f := range failed {
				pending[f] = struct{}{}
			}
		}
	}
}

// broadcast sends m to every session except the one with id except. Must be called with mu held.
func (r *Relay) broadcast(m Message, except string) []string {
	var failed []string
	for id, mb := range r.sessions {
		if id == except {
			continue
		}

		if err := mb.conn.Send(m); err != nil {
			failed = append(failed, id)
		}
	}

	return failed
}

func randUpTo(n float64) float64 {
	if n < 1 {
		return 0
	}

	return float64(rand.IntN(int(n)))
}
