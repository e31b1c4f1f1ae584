package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, cfg Config, opts ...StoreOption) *MemoryStore {
	t.Helper()

	s, err := NewMemoryStore(cfg, opts...)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	return s
}

func TestMemoryStoreGetCreatesEmptyConversation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Config{})
	conv, err := s.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conv.UserID != "alice" {
		t.Fatalf("Get().UserID = %q, want %q", conv.UserID, "alice")
	}
	if len(conv.History) != 0 || len(conv.Slots) != 0 || conv.Pending != nil {
		t.Fatalf("expected empty conversation, got %+v", conv)
	}
	if conv.Window != DefaultHistoryWindow {
		t.Fatalf("Get().Window = %d, want %d", conv.Window, DefaultHistoryWindow)
	}
}

func TestMemoryStoreEmptyUserID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Config{})
	_, err := s.Get(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Get() error = %v, want ErrInvalidSession", err)
	}
}

func TestMemoryStoreHistoryWindowEvictsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{HistoryWindow: 5})
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 6; i++ {
		turn := NewTurn(SpeakerUser, fmt.Sprintf("message %d", i), "", now.Add(time.Duration(i)*time.Second))
		if err := s.AppendTurn(ctx, "bob", turn); err != nil {
			t.Fatalf("AppendTurn(%d) error = %v", i, err)
		}
	}

	conv, err := s.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(conv.History) != 5 {
		t.Fatalf("len(History) = %d, want 5", len(conv.History))
	}
	if conv.History[0].Text != "message 2" {
		t.Fatalf("oldest turn = %q, want %q", conv.History[0].Text, "message 2")
	}
	if conv.History[4].Text != "message 6" {
		t.Fatalf("newest turn = %q, want %q", conv.History[4].Text, "message 6")
	}
}

func TestMemoryStoreMergeSlotsOverwritesAndKeeps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	if err := s.MergeSlots(ctx, "carol", map[string]string{"location": "Klang", "outlet_name": "Klang Main"}); err != nil {
		t.Fatalf("MergeSlots() error = %v", err)
	}
	if err := s.MergeSlots(ctx, "carol", map[string]string{"location": "Shah Alam", "outlet_name": ""}); err != nil {
		t.Fatalf("MergeSlots() error = %v", err)
	}

	conv, err := s.Get(ctx, "carol")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := conv.Slot("location"); got != "Shah Alam" {
		t.Fatalf("location = %q, want %q", got, "Shah Alam")
	}
	if got := conv.Slot("outlet_name"); got != "Klang Main" {
		t.Fatalf("outlet_name = %q, want %q", got, "Klang Main")
	}
}

func TestConversationLastMentioned(t *testing.T) {
	t.Parallel()

	c := NewConversation("frank", 5, time.Now())
	if got := c.LastMentioned("outlet_name", "location"); got != "" {
		t.Fatalf("LastMentioned() = %q on an empty conversation", got)
	}

	c.MergeSlots(map[string]string{"outlet_name": "SS 2", "location": "Petaling Jaya"})
	if got := c.LastMentioned("outlet_name", "location"); got != "outlet_name" {
		t.Fatalf("LastMentioned() = %q, want outlet_name for a shared merge", got)
	}

	c.MergeSlots(map[string]string{"location": "Klang"})
	if got := c.LastMentioned("outlet_name", "location"); got != "location" {
		t.Fatalf("LastMentioned() = %q, want location", got)
	}

	clone := c.Clone()
	c.MergeSlots(map[string]string{"outlet_name": "Klang Main"})
	if got := c.LastMentioned("outlet_name", "location"); got != "outlet_name" {
		t.Fatalf("LastMentioned() = %q, want outlet_name", got)
	}
	if got := clone.LastMentioned("outlet_name", "location"); got != "location" {
		t.Fatalf("clone LastMentioned() = %q, want location", got)
	}
}

func TestMemoryStoreResetEquivalentToNewUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	err := s.Update(ctx, "dave", func(c *Conversation) error {
		c.MergeSlots(map[string]string{"location": "Klang"})
		c.AppendTurn(NewTurn(SpeakerUser, "outlets in Klang", "search_outlets", time.Now()))
		c.SetPending("search_outlets", []string{"location"}, "Which location?", time.Now())
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.Reset(ctx, "dave"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	got, err := s.Get(ctx, "dave")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	fresh, err := s.Get(ctx, "erin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if len(got.History) != len(fresh.History) || len(got.Slots) != len(fresh.Slots) {
		t.Fatalf("reset conversation %+v differs from fresh %+v", got, fresh)
	}
	if got.Pending != nil {
		t.Fatalf("expected pending cleared, got %+v", got.Pending)
	}
	if got.Window != fresh.Window {
		t.Fatalf("Window = %d, want %d", got.Window, fresh.Window)
	}
}

func TestMemoryStoreUpdateRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})
	boom := errors.New("boom")

	err := s.Update(ctx, "frank", func(c *Conversation) error {
		c.MergeSlots(map[string]string{"location": "Klang"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	conv, err := s.Get(ctx, "frank")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conv.Slot("location") != "" {
		t.Fatalf("expected rollback, got slots %v", conv.Slots)
	}
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	conv, err := s.Get(ctx, "gina")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	conv.Slots["location"] = "Klang"

	again, err := s.Get(ctx, "gina")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Slot("location") != "" {
		t.Fatal("mutating a snapshot must not change stored state")
	}
}

func TestMemoryStoreUsersAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	var wg conc.WaitGroup
	for _, user := range []string{"u1", "u2"} {
		user := user
		wg.Go(func() {
			for i := 0; i < 20; i++ {
				_ = s.Update(ctx, user, func(c *Conversation) error {
					c.MergeSlots(map[string]string{"owner": user})
					c.AppendTurn(NewTurn(SpeakerUser, user, "", time.Now()))
					return nil
				})
			}
		})
	}
	wg.Wait()

	for _, user := range []string{"u1", "u2"} {
		conv, err := s.Get(ctx, user)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", user, err)
		}
		if conv.Slot("owner") != user {
			t.Fatalf("user %s sees owner slot %q", user, conv.Slot("owner"))
		}
		for _, turn := range conv.History {
			if turn.Text != user {
				t.Fatalf("user %s sees foreign turn %q", user, turn.Text)
			}
		}
	}
}

func TestMemoryStoreSerializesSameUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Go(func() {
			_ = s.Update(ctx, "counter", func(c *Conversation) error {
				n := 0
				fmt.Sscanf(c.Slot("n"), "%d", &n)
				c.MergeSlots(map[string]string{"n": fmt.Sprint(n + 1)})
				return nil
			})
		})
	}
	wg.Wait()

	conv, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conv.Slot("n") != "50" {
		t.Fatalf("n = %q, want 50 (lost updates)", conv.Slot("n"))
	}
}

func TestMemoryStoreDifferentUsersDoNotBlock(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Config{})
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = s.Update(context.Background(), "slow", func(c *Conversation) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.Get(ctx, "fast"); err != nil {
		t.Fatalf("Get(fast) error = %v while another user holds its lock", err)
	}

	blocked, cancelBlocked := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelBlocked()
	if _, err := s.Get(blocked, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Get(slow) error = %v, want DeadlineExceeded", err)
	}
}

func TestMemoryStoreEvictsIdleConversations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, Config{IdleTTL: time.Minute}, WithClock(clock.Now))

	if err := s.MergeSlots(ctx, "idle", map[string]string{"location": "Klang"}); err != nil {
		t.Fatalf("MergeSlots() error = %v", err)
	}
	clock.Advance(2 * time.Minute)

	if n := s.Sweep(clock.Now()); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	conv, err := s.Get(ctx, "idle")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conv.Slot("location") != "" {
		t.Fatalf("expected evicted conversation to restart empty, got %v", conv.Slots)
	}
}

func TestMemoryStoreSweepsOnConfiguredInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, Config{IdleTTL: 10 * time.Minute, SweepInterval: time.Second}, WithClock(clock.Now))

	if _, err := s.Get(ctx, "idle"); err != nil {
		t.Fatalf("Get(idle) error = %v", err)
	}
	clock.Advance(9 * time.Minute)
	if _, err := s.Get(ctx, "warm"); err != nil {
		t.Fatalf("Get(warm) error = %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := s.Get(ctx, "other"); err != nil {
		t.Fatalf("Get(other) error = %v", err)
	}

	if _, ok := s.entries.Load("idle"); ok {
		t.Fatal("expected idle conversation to be swept on access")
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	if _, err := NewMemoryStore(Config{SweepInterval: -time.Second}); err == nil {
		t.Fatal("expected negative sweep interval to be rejected")
	}
}

func TestMemoryStoreEvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, Config{MaxSessions: 2}, WithClock(clock.Now))

	for _, user := range []string{"first", "second", "third"} {
		if _, err := s.Get(ctx, user); err != nil {
			t.Fatalf("Get(%s) error = %v", user, err)
		}
		clock.Advance(time.Millisecond)
	}

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.entries.Load("first"); ok {
		t.Fatal("expected least recently used conversation to be evicted")
	}
}

func TestIdleOrCapacityPolicySelect(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []EntryInfo{
		{UserID: "stale", LastAccess: now.Add(-2 * time.Hour)},
		{UserID: "old", LastAccess: now.Add(-10 * time.Minute)},
		{UserID: "new", LastAccess: now.Add(-time.Minute)},
	}

	got := IdleOrCapacityPolicy{IdleTTL: time.Hour, MaxEntries: 1}.Select(entries, now)
	if len(got) != 2 || got[0] != "stale" || got[1] != "old" {
		t.Fatalf("Select() = %v, want [stale old]", got)
	}

	if got := (IdleOrCapacityPolicy{}).Select(entries, now); len(got) != 0 {
		t.Fatalf("zero policy Select() = %v, want none", got)
	}
}
