// Package convo owns the conversation state: two parallel bounded logs (the
// display log shown to the user and the turn log sent to the model) and
// their durable, domain-scoped persistence.
//
// Both logs are trimmed FIFO to a fixed bound after every mutation and are
// always persisted together in one snapshot write, so persisted state is a
// consistent view of memory at the time of the last successful append or
// clear. Persistence failures are logged and swallowed; they never corrupt
// the in-memory logs and never surface to the conversation loop.
package convo

import (
	"context"
	"sync"
	"time"

	"github.com/andrewckor/kip-ai/internal/log"
)

// Turn roles in the model-facing history.
const (
	RoleUser  = "user"
	RoleModel = "model"

	// legacyRoleAssistant is the pre-migration label for model turns.
	legacyRoleAssistant = "assistant"
)

// Message is one display log entry.
type Message struct {
	Content   string `json:"content"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp"`
}

// TextPart is the single part kind stored in the turn log. Media parts are
// assembled per request and never persisted.
type TextPart struct {
	Text string `json:"text"`
}

// Turn is one model-history entry.
type Turn struct {
	Role  string     `json:"role"`
	Parts []TextPart `json:"parts"`
}

// State holds the in-memory logs for one domain and writes them through to
// a Store. Safe for concurrent use.
type State struct {
	domain string
	bound  int
	store  Store
	logger log.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
	turns    []Turn
}

// NewState builds a State for the given domain. bound caps both logs.
func NewState(domain string, bound int, store Store, logger log.Logger) *State {
	return &State{
		domain: domain,
		bound:  bound,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Domain returns the storage namespace this state is scoped to.
func (s *State) Domain() string { return s.domain }

// Load reads the persisted snapshot for the domain, applies any pending
// format migration, and trims to the bound. Missing or corrupt data resets
// to empty logs; the failure is logged, never returned.
func (s *State) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx, s.domain)
	if err != nil {
		s.logger.Warn("loading conversation state failed, starting empty",
			"domain", s.domain, "error", err)
		s.messages = nil
		s.turns = nil
		return
	}

	migrated := migrate(snap)
	s.messages = trimMessages(migrated.Messages, s.bound)
	s.turns = trimTurns(migrated.Turns, s.bound)

	s.logger.Debug("conversation state loaded",
		"domain", s.domain, "messages", len(s.messages), "turns", len(s.turns))
}

// RecordUser appends the triggering input to both logs as a user entry and
// persists. Returns the display message.
func (s *State) RecordUser(ctx context.Context, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Content: text, IsUser: true, Timestamp: s.timestamp()}
	s.messages = trimMessages(append(s.messages, msg), s.bound)
	s.turns = trimTurns(append(s.turns, Turn{
		Role:  RoleUser,
		Parts: []TextPart{{Text: text}},
	}), s.bound)

	s.persistLocked(ctx)
	return msg
}

// RecordModel appends the model's reply text to the display log and, when
// non-empty, to the turn log, then persists. Returns the display message and
// its index in the display log.
func (s *State) RecordModel(ctx context.Context, text string) (Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Content: text, IsUser: false, Timestamp: s.timestamp()}
	s.messages = trimMessages(append(s.messages, msg), s.bound)
	if text != "" {
		s.turns = trimTurns(append(s.turns, Turn{
			Role:  RoleModel,
			Parts: []TextPart{{Text: text}},
		}), s.bound)
	}

	s.persistLocked(ctx)
	return msg, len(s.messages) - 1
}

// RecordNotice appends a client-side message (the failure apology) to the
// display log only. The model-facing history is never polluted with it.
func (s *State) RecordNotice(ctx context.Context, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Content: text, IsUser: false, Timestamp: s.timestamp()}
	s.messages = trimMessages(append(s.messages, msg), s.bound)

	s.persistLocked(ctx)
	return msg
}

// Messages returns a copy of the display log, oldest first.
func (s *State) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Turns returns a copy of the turn log, oldest first.
func (s *State) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTurns(s.turns)
}

// HistoryForRequest returns the turn log excluding the trailing user turn,
// which the outgoing payload supersedes in-band.
func (s *State) HistoryForRequest() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns
	if n := len(turns); n > 0 && turns[n-1].Role == RoleUser {
		turns = turns[:n-1]
	}
	return copyTurns(turns)
}

// Clear deletes persisted state for the domain and empties both logs.
func (s *State) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.turns = nil
	if err := s.store.Clear(ctx, s.domain); err != nil {
		s.logger.Warn("clearing conversation state failed", "domain", s.domain, "error", err)
	}
}

// persistLocked writes both logs as one snapshot. Callers hold s.mu.
func (s *State) persistLocked(ctx context.Context) {
	snap := &Snapshot{
		Version:  SchemaVersion,
		Messages: s.messages,
		Turns:    s.turns,
	}
	if err := s.store.Save(ctx, s.domain, snap); err != nil {
		s.logger.Warn("persisting conversation state failed", "domain", s.domain, "error", err)
	}
}

func (s *State) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func trimMessages(msgs []Message, bound int) []Message {
	if len(msgs) > bound {
		msgs = msgs[len(msgs)-bound:]
	}
	return msgs
}

func trimTurns(turns []Turn, bound int) []Turn {
	if len(turns) > bound {
		turns = turns[len(turns)-bound:]
	}
	return turns
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		parts := make([]TextPart, len(t.Parts))
		copy(parts, t.Parts)
		out[i] = Turn{Role: t.Role, Parts: parts}
	}
	return out
}
