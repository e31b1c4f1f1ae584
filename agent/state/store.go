package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

const (
	minSweepInterval = time.Second
)

// Store is the conversation-state contract used by the orchestrator.
// Every operation is keyed by user id; no operation observes another user.
type Store interface {
	Get(ctx context.Context, userID string) (*Conversation, error)
	AppendTurn(ctx context.Context, userID string, t Turn) error
	MergeSlots(ctx context.Context, userID string, patch map[string]string) error
	Reset(ctx context.Context, userID string) error
	// Update runs fn inside the user's critical section. Changes made by fn are
	// committed only when it returns nil.
	Update(ctx context.Context, userID string, fn func(*Conversation) error) error
}

type Config struct {
	HistoryWindow int           `split_words:"true" default:"5"`
	IdleTTL       time.Duration `split_words:"true" default:"30m"`
	MaxSessions   int           `split_words:"true" default:"10000"`
	// SweepInterval defaults to half of IdleTTL.
	SweepInterval time.Duration `split_words:"true"`
}

// EntryInfo is what an EvictionPolicy sees about a stored conversation.
type EntryInfo struct {
	UserID     string
	LastAccess time.Time
}

// EvictionPolicy picks the user ids to drop from the store.
type EvictionPolicy interface {
	Select(entries []EntryInfo, now time.Time) []string
}

// IdleOrCapacityPolicy evicts conversations idle for longer than IdleTTL, then
// the least recently used ones until at most MaxEntries remain. Zero disables
// the corresponding rule.
type IdleOrCapacityPolicy struct {
	IdleTTL    time.Duration
	MaxEntries int
}

func (p IdleOrCapacityPolicy) Select(entries []EntryInfo, now time.Time) []string {
	var victims []string
	live := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		if p.IdleTTL > 0 && now.Sub(e.LastAccess) > p.IdleTTL {
			victims = append(victims, e.UserID)
			continue
		}
		live = append(live, e)
	}

	if p.MaxEntries > 0 && len(live) > p.MaxEntries {
		sort.SliceStable(live, func(i, j int) bool {
			return live[i].LastAccess.Before(live[j].LastAccess)
		})
		for _, e := range live[:len(live)-p.MaxEntries] {
			victims = append(victims, e.UserID)
		}
	}
	return victims
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithEvictionPolicy(p EvictionPolicy) StoreOption {
	return func(s *MemoryStore) {
		if p != nil {
			s.policy = p
		}
	}
}

type entry struct {
	// lock is a one-slot semaphore: send acquires, receive releases.
	lock       chan struct{}
	conv       *Conversation
	evicted    bool
	lastAccess atomic.Int64
}

// MemoryStore keeps conversations for the lifetime of the process. Each user
// has its own lock, so unrelated users never wait on each other.
type MemoryStore struct {
	entries    *xsync.MapOf[string, *entry]
	window     int
	maxEntries int
	policy     EvictionPolicy
	sweepEvery time.Duration
	lastSweep  atomic.Int64
	sweeping   atomic.Bool
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(cfg Config, opts ...StoreOption) (*MemoryStore, error) {
	window := cfg.HistoryWindow
	if window == 0 {
		window = DefaultHistoryWindow
	}
	if window < 0 {
		return nil, errors.New("history window must be > 0")
	}
	if cfg.IdleTTL < 0 {
		return nil, errors.New("idle ttl must be >= 0")
	}
	if cfg.MaxSessions < 0 {
		return nil, errors.New("max sessions must be >= 0")
	}
	if cfg.SweepInterval < 0 {
		return nil, errors.New("sweep interval must be >= 0")
	}

	sweepEvery := cfg.SweepInterval
	if sweepEvery == 0 {
		sweepEvery = cfg.IdleTTL / 2
	}
	if sweepEvery < minSweepInterval {
		sweepEvery = minSweepInterval
	}

	s := &MemoryStore{
		entries:    xsync.NewMapOf[string, *entry](),
		window:     window,
		maxEntries: cfg.MaxSessions,
		policy: IdleOrCapacityPolicy{
			IdleTTL:    cfg.IdleTTL,
			MaxEntries: cfg.MaxSessions,
		},
		sweepEvery: sweepEvery,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.lastSweep.Store(s.now().UnixNano())
	return s, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*Conversation, error) {
	var snapshot *Conversation
	err := s.withEntry(ctx, userID, func(e *entry) error {
		snapshot = e.conv.Clone()
		return nil
	})
	return snapshot, err
}

func (s *MemoryStore) AppendTurn(ctx context.Context, userID string, t Turn) error {
	return s.Update(ctx, userID, func(c *Conversation) error {
		c.AppendTurn(t)
		c.Touch(s.now())
		return nil
	})
}

func (s *MemoryStore) MergeSlots(ctx context.Context, userID string, patch map[string]string) error {
	return s.Update(ctx, userID, func(c *Conversation) error {
		c.MergeSlots(patch)
		c.Touch(s.now())
		return nil
	})
}

func (s *MemoryStore) Reset(ctx context.Context, userID string) error {
	return s.withEntry(ctx, userID, func(e *entry) error {
		e.conv = NewConversation(e.conv.UserID, s.window, s.now())
		log.Debug().Str("user_id", e.conv.UserID).Msg("conversation reset")
		return nil
	})
}

func (s *MemoryStore) Update(ctx context.Context, userID string, fn func(*Conversation) error) error {
	if fn == nil {
		return errors.New("update func is nil")
	}
	return s.withEntry(ctx, userID, func(e *entry) error {
		draft := e.conv.Clone()
		if err := fn(draft); err != nil {
			return err
		}
		if err := draft.Validate(); err != nil {
			return fmt.Errorf("invalid conversation state: %w", err)
		}
		e.conv = draft
		return nil
	})
}

// Len reports how many conversations are currently held.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}

// Sweep applies the eviction policy once. Conversations whose lock is held are
// skipped and reconsidered on the next sweep.
func (s *MemoryStore) Sweep(now time.Time) int {
	infos := make([]EntryInfo, 0, s.entries.Size())
	s.entries.Range(func(userID string, e *entry) bool {
		infos = append(infos, EntryInfo{
			UserID:     userID,
			LastAccess: time.Unix(0, e.lastAccess.Load()),
		})
		return true
	})

	evicted := 0
	for _, userID := range s.policy.Select(infos, now) {
		e, ok := s.entries.Load(userID)
		if !ok {
			continue
		}
		select {
		case e.lock <- struct{}{}:
		default:
			continue
		}
		e.evicted = true
		s.entries.Compute(userID, func(old *entry, loaded bool) (*entry, bool) {
			return old, loaded && old == e
		})
		<-e.lock
		evicted++
	}

	s.lastSweep.Store(now.UnixNano())
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Int("remaining", s.entries.Size()).Msg("conversation store swept")
	}
	return evicted
}

func (s *MemoryStore) withEntry(ctx context.Context, userID string, fn func(*entry) error) error {
	e, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer func() { <-e.lock }()
	return fn(e)
}

func (s *MemoryStore) acquire(ctx context.Context, userID string) (*entry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidSession
	}

	for {
		now := s.now()
		e, loaded := s.entries.LoadOrCompute(userID, func() *entry {
			ne := &entry{
				lock: make(chan struct{}, 1),
				conv: NewConversation(userID, s.window, now),
			}
			ne.lastAccess.Store(now.UnixNano())
			return ne
		})
		s.maybeSweep(now, !loaded)

		select {
		case e.lock <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.evicted {
			<-e.lock
			continue
		}
		e.lastAccess.Store(now.UnixNano())
		return e, nil
	}
}

func (s *MemoryStore) maybeSweep(now time.Time, created bool) {
	overCapacity := created && s.maxEntries > 0 && s.entries.Size() > s.maxEntries
	due := now.Sub(time.Unix(0, s.lastSweep.Load())) >= s.sweepEvery
	if !overCapacity && !due {
		return
	}
	if !s.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer s.sweeping.Store(false)
	s.Sweep(now)
}
