package reactdrop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
	"github.com/vrsc-tipbot/tipbot/pkg/retry"
)

const (
	// reactorPageSize is the largest page the reactions endpoint serves.
	reactorPageSize = 100
	// cleanupTimeout bounds the best-effort calls made while closing a session.
	cleanupTimeout = 30 * time.Second
)

var (
	errCancelled = errors.New("reactdrop cancelled")
	errStopped   = errors.New("reactdrop stopped by shutdown")
)

// Ledger is what a reactdrop needs from the tip bot.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (models.Amount, error)
	Distribute(ctx context.Context, req *models.DistributionRequest) (*models.DistributionResult, error)
}

// Request is a reactdrop command after parsing.
type Request struct {
	Sender    string
	GuildID   string
	ChannelID string
	Emoji     string
	Amount    models.Amount
	Time      int
	Unit      Unit
}

// Manager starts reactdrops and runs each one in its own goroutine.
// Sessions never reference the request that started them.
type Manager struct {
	logger   *logger.Logger
	chat     models.Chat
	ledger   Ledger
	registry Registry

	// second is the length of one countdown second. Tests shrink it.
	second    time.Duration
	listRetry retry.Policy
	newID     func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Manager)

// WithSecond changes the length of a countdown second.
func WithSecond(d time.Duration) Option {
	return func(m *Manager) { m.second = d }
}

// WithListRetry changes the retry policy for reactor pages.
func WithListRetry(p retry.Policy) Option {
	return func(m *Manager) { m.listRetry = p }
}

func NewManager(logger *logger.Logger, chat models.Chat, ledger Ledger, registry Registry, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:    logger,
		chat:      chat,
		ledger:    ledger,
		registry:  registry,
		second:    time.Second,
		listRetry: retry.DefaultPolicy,
		newID:     func() string { return uuid.New().String() },
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// session is owned by exactly one goroutine.
type session struct {
	info    SessionInfo
	seconds int
	anchor  models.MessageRef
	logger  *logger.Logger
}

// Start validates the request, posts the announcement and detaches the countdown.
// The returned info is a snapshot; the session keeps running after ctx is done.
func (m *Manager) Start(ctx context.Context, req *Request) (*SessionInfo, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: reactdrop of %d", models.ErrInvalidAmount, req.Amount)
	}
	seconds, err := ToSeconds(req.Time, req.Unit)
	if err != nil {
		return nil, err
	}
	emoji, err := ValidateEmoji(ctx, m.chat, req.GuildID, req.Emoji)
	if err != nil {
		return nil, err
	}

	// Advisory only, the debit at the end is the real check.
	balance, err := m.ledger.GetBalance(ctx, req.Sender)
	if err != nil {
		return nil, err
	}
	if balance < req.Amount {
		return nil, models.ErrInsufficientFunds
	}

	s := &session{
		info: SessionInfo{
			ID:        m.newID(),
			Sender:    req.Sender,
			GuildID:   req.GuildID,
			ChannelID: req.ChannelID,
			Emoji:     emoji,
			Amount:    req.Amount,
			Deadline:  time.Now().Add(time.Duration(seconds) * m.second),
			State:     StateAnnounced,
		},
		seconds: seconds,
	}
	s.logger = m.logger.With("reactdrop", s.info.ID)

	ref, err := m.chat.Send(ctx, req.ChannelID, &models.OutgoingMessage{
		Content: announcement(s.info, fmt.Sprintf("%d %s", req.Time, req.Unit)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrExternalDelivery, err)
	}
	s.anchor = *ref
	s.info.MessageID = ref.MessageID

	if err := m.chat.React(ctx, s.anchor, emoji.APIName()); err != nil {
		s.logger.Warn("Failed to add the marker reaction", "error", err)
	}

	s.info.State = StateCountingDown
	if err := m.registry.Register(ctx, &s.info); err != nil {
		s.logger.Warn("Failed to register reactdrop, it can't be cancelled", "error", err)
	}
	s.logger.Info("Reactdrop started", "sender", s.info.Sender, "amount", s.info.Amount.String(), "seconds", seconds, "emoji", emoji.String())

	snapshot := s.info
	m.wg.Add(1)
	go m.run(s)
	return &snapshot, nil
}

// Cancel stops a running reactdrop before anything is distributed.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	return m.registry.Cancel(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]*SessionInfo, error) {
	return m.registry.List(ctx)
}

// Wait blocks until every running session has closed.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown aborts running sessions without distributing and waits for them.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) run(s *session) {
	defer m.wg.Done()
	defer m.close(s)

	ctx := m.ctx
	if err := m.countdown(ctx, s); err != nil {
		s.logger.Info("Reactdrop ended early", "reason", err)
		m.announce(ctx, s, fmt.Sprintf("The reactdrop of %s was cancelled, nothing was sent.", s.info.Amount))
		return
	}

	m.setState(ctx, s, StateCollecting)
	participants, err := m.collect(ctx, s)
	if err != nil {
		s.logger.Error("Failed to collect participants", "error", err)
		m.announce(ctx, s, fmt.Sprintf("The reactdrop of %s could not read its participants, nothing was sent.", s.info.Amount))
		return
	}

	m.setState(ctx, s, StateDistributing)
	m.distribute(ctx, s, participants)
}

// countdown edits the anchor every minute while more than two minutes remain,
// then every second down to zero.
func (m *Manager) countdown(ctx context.Context, s *session) error {
	remaining := s.seconds
	step := nextStep(remaining)
	ticker := time.NewTicker(time.Duration(step) * m.second)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return errStopped
		case <-ticker.C:
		}

		remaining -= step
		if remaining < 0 {
			remaining = 0
		}

		cancelled, err := m.registry.IsCancelled(ctx, s.info.ID)
		if err != nil {
			s.logger.Warn("Failed to check cancellation", "error", err)
		}
		if cancelled {
			return errCancelled
		}

		if err := m.chat.Edit(ctx, s.anchor, announcement(s.info, remainingText(remaining))); err != nil {
			s.logger.Warn("Failed to update countdown", "remaining", remaining, "error", err)
		}

		if next := nextStep(remaining); next != step && remaining > 0 {
			step = next
			ticker.Reset(time.Duration(step) * m.second)
		}
	}
	return nil
}

// collect pages through the reactors. A failed page is retried; only an empty
// page ends the walk.
func (m *Manager) collect(ctx context.Context, s *session) ([]string, error) {
	seen := map[string]struct{}{}
	var participants []string
	after := ""

	for {
		var page []models.Reactor
		err := retry.Do(ctx, m.listRetry, func(attempt int, err error, wait time.Duration) {
			s.logger.Warn("Failed to fetch reactors, retrying", "after", after, "attempt", attempt, "retry_in", wait, "error", err)
		}, func(ctx context.Context) error {
			var listErr error
			page, listErr = m.chat.ListReactors(ctx, s.anchor, s.info.Emoji.APIName(), after, reactorPageSize)
			return listErr
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		for _, r := range page {
			if r.Bot {
				continue
			}
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			participants = append(participants, r.ID)
		}
	}

	s.logger.Debug("Collected participants", "count", len(participants))
	return participants, nil
}

func (m *Manager) distribute(ctx context.Context, s *session, participants []string) {
	if len(participants) == 0 {
		s.logger.Info("Nobody joined the reactdrop")
		m.announce(ctx, s, fmt.Sprintf("Nobody joined the reactdrop of %s, nothing was sent.", s.info.Amount))
		return
	}

	result, err := m.ledger.Distribute(ctx, &models.DistributionRequest{
		Sender:     s.info.Sender,
		Amount:     s.info.Amount,
		Recipients: participants,
		Kind:       models.ActionTipReactdrop,
		ChannelID:  s.info.ChannelID,
	})
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		m.announce(ctx, s, fmt.Sprintf("<@%s> no longer has enough balance for the reactdrop of %s, nothing was sent.", s.info.Sender, s.info.Amount))
	case errors.Is(err, models.ErrAmountTooSmall):
		m.announce(ctx, s, fmt.Sprintf("The reactdrop of %s is too small to split between %d users, nothing was sent.", s.info.Amount, len(participants)))
	case err != nil:
		s.logger.Error("Reactdrop distribution failed", "error", err)
		m.announce(ctx, s, "Something went wrong while paying out the reactdrop, nothing was sent.")
	default:
		s.logger.Info("Reactdrop paid out", "event_id", result.EventID, "recipients", result.RecipientCount, "per_recipient", result.PerRecipient.String())
	}
}

// close removes the marker and forgets the session. Both are best effort.
func (m *Manager) close(s *session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), cleanupTimeout)
	defer cancel()

	s.info.State = StateClosed
	if err := m.chat.RemoveReactionMarker(ctx, s.anchor, s.info.Emoji.APIName()); err != nil {
		s.logger.Warn("Failed to remove the marker reaction", "error", err)
	}
	if err := m.registry.Remove(ctx, s.info.ID); err != nil {
		s.logger.Warn("Failed to unregister reactdrop", "error", err)
	}
	s.logger.Debug("Reactdrop closed")
}

func (m *Manager) setState(ctx context.Context, s *session, state State) {
	s.info.State = state
	if err := m.registry.Register(ctx, &s.info); err != nil {
		s.logger.Warn("Failed to update reactdrop state", "state", state, "error", err)
	}
}

// announce posts a plain message in the drop's channel without pinging anyone.
func (m *Manager) announce(ctx context.Context, s *session, content string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if _, err := m.chat.Send(ctx, s.info.ChannelID, &models.OutgoingMessage{Content: content}); err != nil {
		s.logger.Warn("Failed to post reactdrop message", "error", err)
	}
}

func announcement(info SessionInfo, remaining string) string {
	return fmt.Sprintf(">>> **A reactdrop of %s was started!**\n\nReact with the %s emoji to participate\n\nTime remaining: %s",
		info.Amount, info.Emoji, remaining)
}
