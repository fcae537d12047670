package track

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewckor/kip-ai/internal/log"
)

func staticObserving(v bool) func() bool {
	return func() bool { return v }
}

func TestClickRecords(t *testing.T) {
	t.Parallel()

	tr := New(staticObserving(false), nil, log.NewNop())
	tr.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}

	rec, ok := tr.Click(
		Target{TagName: "A", ID: "signup", ClassName: "btn primary", Text: "Sign up", Href: "/signup"},
		Position{X: 120, Y: 340},
	)
	require.True(t, ok)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, TypeClick, rec.Type)
	assert.Equal(t, "2026-03-14T09:26:53.589Z", rec.Timestamp)
	assert.Equal(t, "A", rec.Details.Target.TagName)
	assert.Equal(t, 120.0, rec.Details.Position.X)

	records := tr.Records()
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestClickRecordedWhileNotObserving(t *testing.T) {
	t.Parallel()

	notified := 0
	tr := New(staticObserving(false), func(string) { notified++ }, log.NewNop())

	_, ok := tr.Click(Target{TagName: "BUTTON"}, Position{})
	require.True(t, ok)

	assert.Len(t, tr.Records(), 1, "clicks are recorded regardless of observation state")
	assert.Zero(t, notified, "notifier must not fire while not observing")
}

func TestClickNotifiesWhileObserving(t *testing.T) {
	t.Parallel()

	var got string
	tr := New(staticObserving(true), func(msg string) { got = msg }, log.NewNop())

	rec, ok := tr.Click(Target{TagName: "BUTTON", ID: "next"}, Position{X: 10, Y: 20})
	require.True(t, ok)

	require.NotEmpty(t, got)
	assert.True(t, strings.HasPrefix(got, "User performed click action: "), "got %q", got)

	// The notification body is the record as pretty-printed JSON.
	payload := strings.TrimPrefix(got, "User performed click action: ")
	var decoded Record
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, TypeClick, decoded.Type)
	assert.Equal(t, "next", decoded.Details.Target.ID)
	assert.Equal(t, rec.Timestamp, decoded.Timestamp)
	assert.Contains(t, payload, "\n", "notification payload should be indented")
}

func TestClickIgnoresWidgetSubtree(t *testing.T) {
	t.Parallel()

	notified := 0
	tr := New(staticObserving(true), func(string) { notified++ }, log.NewNop())

	for _, target := range []Target{
		{TagName: "INPUT", ID: "chat-input"},
		{TagName: "BUTTON", ID: "send-button"},
		{TagName: "DIV", ID: "chat-container"},
		{TagName: "DIV", ClassName: "floating-hand"},
	} {
		_, ok := tr.Click(target, Position{})
		assert.False(t, ok, "widget click %+v should be dropped", target)
	}

	assert.Empty(t, tr.Records())
	assert.Zero(t, notified)
}

func TestClickCustomWidgetFilter(t *testing.T) {
	t.Parallel()

	tr := New(staticObserving(false), nil, log.NewNop(),
		WithWidgetFilter(func(target Target) bool {
			return strings.HasPrefix(target.ID, "my-widget-")
		}))

	_, ok := tr.Click(Target{TagName: "DIV", ID: "my-widget-root"}, Position{})
	assert.False(t, ok)

	// The built-in shell ids are no longer special.
	_, ok = tr.Click(Target{TagName: "INPUT", ID: "chat-input"}, Position{})
	assert.True(t, ok)
}

func TestClickTruncatesTargetText(t *testing.T) {
	t.Parallel()

	tr := New(staticObserving(false), nil, log.NewNop())

	long := strings.Repeat("x", 250)
	rec, ok := tr.Click(Target{TagName: "P", Text: long}, Position{})
	require.True(t, ok)

	assert.Len(t, rec.Details.Target.Text, 100)
}

func TestRecent(t *testing.T) {
	t.Parallel()

	tr := New(staticObserving(false), nil, log.NewNop())
	for _, id := range []string{"a", "b", "c", "d"} {
		_, ok := tr.Click(Target{TagName: "BUTTON", ID: id}, Position{})
		require.True(t, ok)
	}

	recent := tr.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Details.Target.ID)
	assert.Equal(t, "d", recent[1].Details.Target.ID)

	assert.Len(t, tr.Recent(10), 4)
	assert.Nil(t, tr.Recent(0))
}

func TestRecordsReturnsCopy(t *testing.T) {
	t.Parallel()

	tr := New(staticObserving(false), nil, log.NewNop())
	_, ok := tr.Click(Target{TagName: "BUTTON", ID: "a"}, Position{})
	require.True(t, ok)

	records := tr.Records()
	records[0].Details.Target.ID = "mutated"

	assert.Equal(t, "a", tr.Records()[0].Details.Target.ID)
}
