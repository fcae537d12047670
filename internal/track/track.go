// Package track normalizes raw host-page input events into interaction
// records and, while observation mode is active, pushes click notifications
// into the conversation loop as autonomous follow-up messages.
package track

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrewckor/kip-ai/internal/log"
)

// TypeClick is the interaction type for pointer clicks.
const TypeClick = "click"

// maxTargetText caps the captured text content of a click target.
const maxTargetText = 100

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Target describes the element a click landed on.
type Target struct {
	TagName   string `json:"tagName"`
	ID        string `json:"id"`
	ClassName string `json:"className"`
	Text      string `json:"text"`
	Href      string `json:"href,omitempty"`
}

// Position is the pointer location of a click in viewport coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClickDetails is the normalized payload of one click record.
type ClickDetails struct {
	Target   Target   `json:"target"`
	Position Position `json:"position"`
}

// Record is one normalized interaction. The ID is internal and never shown
// to the model.
type Record struct {
	ID        string       `json:"-"`
	Type      string       `json:"type"`
	Details   ClickDetails `json:"details"`
	Timestamp string       `json:"timestamp"`
}

// Notifier receives the natural-language notification for a click observed
// while observation mode is active. Implementations enqueue it as an
// autonomous turn into the conversation loop.
type Notifier func(message string)

// Option customizes a Tracker.
type Option func(*Tracker)

// WithWidgetFilter replaces the predicate that detects clicks originating in
// the assistant's own UI subtree. Such clicks are dropped entirely so the
// widget never triggers itself.
func WithWidgetFilter(isWidget func(Target) bool) Option {
	return func(t *Tracker) {
		t.isWidget = isWidget
	}
}

// widgetIDs are the element ids of the assistant's own chat UI.
var widgetIDs = map[string]bool{
	"chat-container":       true,
	"chat-messages":        true,
	"chat-input-container": true,
	"chat-input":           true,
	"send-button":          true,
}

// defaultWidgetFilter recognizes the built-in chat shell and the floating
// indicator.
func defaultWidgetFilter(target Target) bool {
	if widgetIDs[target.ID] {
		return true
	}
	for cls := range strings.FieldsSeq(target.ClassName) {
		if cls == "floating-hand" {
			return true
		}
	}
	return false
}

// Tracker accumulates interaction records for the session. The in-memory
// list is append-only and unbounded; it is not persisted.
//
// Every qualifying click is recorded regardless of observation state. The
// notifier fires only while observing() reports true.
type Tracker struct {
	logger    log.Logger
	observing func() bool
	notify    Notifier
	isWidget  func(Target) bool
	now       func() time.Time

	mu      sync.Mutex
	records []Record
}

// New builds a Tracker. observing is sampled at click time; notify may be
// nil when no conversation loop is attached.
func New(observing func() bool, notify Notifier, logger log.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		logger:    logger,
		observing: observing,
		notify:    notify,
		isWidget:  defaultWidgetFilter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Click records one pointer click. Clicks inside the widget's own UI are
// dropped. Returns the stored record and whether it was kept.
func (t *Tracker) Click(target Target, pos Position) (Record, bool) {
	if t.isWidget(target) {
		return Record{}, false
	}

	target.Text = truncate(target.Text, maxTargetText)
	rec := Record{
		ID:        uuid.NewString(),
		Type:      TypeClick,
		Details:   ClickDetails{Target: target, Position: pos},
		Timestamp: t.now().UTC().Format(timestampLayout),
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.logger.Debug("tracked interaction",
		"id", rec.ID, "type", rec.Type, "tag", target.TagName, "target_id", target.ID)

	if t.observing != nil && t.observing() && t.notify != nil {
		t.notify(notification(rec))
	}

	return rec, true
}

// Records returns a copy of all interactions recorded this session, oldest
// first.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Recent returns up to n of the most recent records, oldest first.
func (t *Tracker) Recent(n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || len(t.records) == 0 {
		return nil
	}
	if n > len(t.records) {
		n = len(t.records)
	}
	out := make([]Record, n)
	copy(out, t.records[len(t.records)-n:])
	return out
}

// notification wraps a record as the natural-language message handed to the
// conversation loop.
func notification(rec Record) string {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Sprintf("User performed %s action on %s", rec.Type, rec.Details.Target.TagName)
	}
	return fmt.Sprintf("User performed click action: %s", data)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
