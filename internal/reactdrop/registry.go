package reactdrop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

// State is the lifecycle position of a reactdrop.
type State string

const (
	StateAnnounced    State = "announced"
	StateCountingDown State = "counting_down"
	StateCollecting   State = "collecting"
	StateDistributing State = "distributing"
	StateClosed       State = "closed"
)

// SessionInfo is everything a reactdrop needs after its command has returned.
type SessionInfo struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	GuildID   string        `json:"guild_id,omitempty"`
	ChannelID string        `json:"channel_id"`
	MessageID string        `json:"message_id"`
	Emoji     Emoji         `json:"emoji"`
	Amount    models.Amount `json:"amount"`
	Deadline  time.Time     `json:"deadline"`
	State     State         `json:"state"`
}

// Registry tracks running reactdrops so they can be listed and cancelled,
// possibly from another process.
type Registry interface {
	// Register stores or replaces the session's entry.
	Register(ctx context.Context, info *SessionInfo) error
	// Cancel flags a registered session. Unknown ids give models.ErrNotFound.
	Cancel(ctx context.Context, id string) error
	IsCancelled(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) error
	// List returns the registered sessions ordered by deadline.
	List(ctx context.Context) ([]*SessionInfo, error)
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	mu        sync.Mutex
	sessions  map[string]SessionInfo
	cancelled map[string]bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions:  map[string]SessionInfo{},
		cancelled: map[string]bool{},
	}
}

func (r *MemoryRegistry) Register(_ context.Context, info *SessionInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[info.ID] = *info
	return nil
}

func (r *MemoryRegistry) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return models.ErrNotFound
	}
	r.cancelled[id] = true
	return nil
}

func (r *MemoryRegistry) IsCancelled(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled[id], nil
}

func (r *MemoryRegistry) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.cancelled, id)
	return nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]*SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		info := s
		out = append(out, &info)
	}
	sortByDeadline(out)
	return out, nil
}

func sortByDeadline(sessions []*SessionInfo) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Deadline.Equal(sessions[j].Deadline) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Deadline.Before(sessions[j].Deadline)
	})
}
