package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultHistoryWindow = 5

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is a single utterance in a conversation. Turns are never modified after
// they are appended.
type Turn struct {
	ID      string    `json:"id"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	Intent  string    `json:"intent,omitempty"`
	At      time.Time `json:"at"`
}

func NewTurn(speaker Speaker, text, intent string, now time.Time) Turn {
	return Turn{
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    text,
		Intent:  intent,
		At:      now.UTC(),
	}
}

// PendingIntent is an intent that was recognised but could not run because
// required slots were missing.
type PendingIntent struct {
	Intent   string    `json:"intent"`
	Missing  []string  `json:"missing"`
	Question string    `json:"question"`
	Attempts int       `json:"attempts"`
	Since    time.Time `json:"since"`
}

// Conversation is the per-user dialogue state.
// - History: FIFO window of the most recent turns, never longer than Window.
// - Slots: last-mentioned-wins values; only Reset removes keys.
type Conversation struct {
	UserID  string            `json:"user_id"`
	Window  int               `json:"window"`
	History []Turn            `json:"history"`
	Slots   map[string]string `json:"slots"`
	Pending *PendingIntent    `json:"pending,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// slotSeq records the merge that last set each slot.
	slotSeq map[string]int
	merges  int
}

var (
	ErrInvalidSession  = errors.New("user id is empty")
	ErrWindowExceeded  = errors.New("history exceeds window")
	ErrPendingNoIntent = errors.New("pending intent has no intent")
)

func NewConversation(userID string, window int, now time.Time) *Conversation {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Conversation{
		UserID:    userID,
		Window:    window,
		History:   make([]Turn, 0, window),
		Slots:     make(map[string]string, 4),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// AppendTurn adds t and evicts the oldest turns beyond the window.
func (c *Conversation) AppendTurn(t Turn) {
	c.History = append(c.History, t)
	if over := len(c.History) - c.Window; over > 0 {
		c.History = slices.Clone(c.History[over:])
	}
}

// MergeSlots overwrites same-named slots. Empty values are ignored so a turn
// that mentions nothing never erases what an earlier turn supplied.
func (c *Conversation) MergeSlots(patch map[string]string) {
	if c.Slots == nil {
		c.Slots = make(map[string]string, len(patch))
	}
	if c.slotSeq == nil {
		c.slotSeq = make(map[string]int, len(patch))
	}
	c.merges++
	for k, v := range patch {
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		c.Slots[k] = v
		c.slotSeq[k] = c.merges
	}
}

// LastMentioned returns whichever of names was set most recently. Names set in
// the same merge rank in argument order. It returns "" when none is set.
func (c *Conversation) LastMentioned(names ...string) string {
	best, bestSeq := "", -1
	for _, name := range names {
		if c.Slot(name) == "" {
			continue
		}
		if seq := c.slotSeq[name]; seq > bestSeq {
			best, bestSeq = name, seq
		}
	}
	return best
}

func (c *Conversation) Slot(name string) string {
	if c == nil || c.Slots == nil {
		return ""
	}
	return c.Slots[name]
}

func (c *Conversation) SetPending(intent string, missing []string, question string, now time.Time) {
	attempts := 1
	if c.Pending != nil && c.Pending.Intent == intent {
		attempts = c.Pending.Attempts + 1
	}
	c.Pending = &PendingIntent{
		Intent:   intent,
		Missing:  slices.Clone(missing),
		Question: question,
		Attempts: attempts,
		Since:    now.UTC(),
	}
}

func (c *Conversation) ClearPending() {
	c.Pending = nil
}

// Clone returns a deep copy safe to hand outside the store's critical section.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.History = slices.Clone(c.History)
	out.Slots = maps.Clone(c.Slots)
	if out.Slots == nil {
		out.Slots = map[string]string{}
	}
	out.slotSeq = maps.Clone(c.slotSeq)
	if c.Pending != nil {
		p := *c.Pending
		p.Missing = slices.Clone(c.Pending.Missing)
		out.Pending = &p
	}
	return &out
}

func (c *Conversation) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrInvalidSession
	}
	if len(c.History) > c.Window {
		return fmt.Errorf("%w: len=%d window=%d", ErrWindowExceeded, len(c.History), c.Window)
	}
	if c.Pending != nil && c.Pending.Intent == "" {
		return ErrPendingNoIntent
	}
	return nil
}
