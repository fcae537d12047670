package action

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/andrewckor/kip-ai/internal/log"
	"github.com/andrewckor/kip-ai/internal/page"
)

// Highlight treatment applied to the target element. Removal clears exactly
// these properties.
const (
	highlightBackground = "rgba(255, 0, 0, 0.2)"
	highlightOutline    = "2px solid red"
	highlightTransition = "all 0.3s ease-in-out"
)

// removedResult is the fixed result string of removeActiveHighlight.
const removedResult = "Highlight and cursor removed"

// Indicator placement relative to the highlighted element: horizontally
// centered with a half-icon offset, just below the bottom edge.
const (
	indicatorHalfWidth = 16
	indicatorGap       = 10
)

// Registry holds the callable page actions and the highlight state they
// share.
//
// Highlight state is mutually exclusive: at most one element bears the
// treatment at any time, and activating a new highlight first fully reverts
// the previous one. The observation flag is true exactly while a highlight
// is active.
type Registry struct {
	page   page.Page
	logger log.Logger

	mu          sync.Mutex
	actions     []Declaration
	dispatch    map[string]func(selector string) string
	highlighted page.Element
	observing   bool
}

// NewRegistry builds the registry for the given page.
func NewRegistry(p page.Page, logger log.Logger) (*Registry, error) {
	highlightSchema, err := jsonschema.For[HighlightParams](nil)
	if err != nil {
		return nil, fmt.Errorf("building highlight schema: %w", err)
	}
	removeSchema, err := jsonschema.For[RemoveHighlightParams](nil)
	if err != nil {
		return nil, fmt.Errorf("building remove-highlight schema: %w", err)
	}

	r := &Registry{
		page:   p,
		logger: logger,
	}
	r.actions = []Declaration{
		{
			Name:        HighlightName,
			Description: "Highlight an element on the page to guide the user where to click or interact",
			Schema:      highlightSchema,
		},
		{
			Name:        RemoveHighlightName,
			Description: "Remove any active highlight from the page when the user moved to next step",
			Schema:      removeSchema,
		},
	}
	r.dispatch = map[string]func(string) string{
		HighlightName:       r.highlight,
		RemoveHighlightName: func(string) string { return r.removeHighlight() },
	}
	return r, nil
}

// Declarations returns the actions in declaration order.
func (r *Registry) Declarations() []Declaration {
	out := make([]Declaration, len(r.actions))
	copy(out, r.actions)
	return out
}

// Dispatch executes one model function call and returns its outcome. Unknown
// names degrade to a diagnostic result string.
func (r *Registry) Dispatch(call Call) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.dispatch[call.Name]
	if !ok {
		r.logger.Warn("unknown function call", "name", call.Name)
		return Outcome{Name: call.Name, Result: fmt.Sprintf("Unknown function %q", call.Name)}
	}

	selector, _ := call.Args["selector"].(string)
	result := fn(selector)
	r.logger.Debug("dispatched function call", "name", call.Name, "selector", selector)
	return Outcome{Name: call.Name, Result: result}
}

// Observing reports whether interaction observation is active. It is true
// exactly while an element is highlighted.
func (r *Registry) Observing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observing
}

// highlight applies the treatment to the first element matching selector.
// Callers hold r.mu.
func (r *Registry) highlight(selector string) string {
	el, ok := r.page.Resolve(selector)
	if !ok {
		return fmt.Sprintf("Element with selector %q not found", selector)
	}

	// An existing highlight is fully reverted before the new one is
	// applied.
	r.removeHighlight()

	rect, hasRect := el.Rect()
	coordinates := struct {
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Width   float64 `json:"width"`
		Height  float64 `json:"height"`
		Element string  `json:"element"`
	}{rect.X, rect.Y, rect.Width, rect.Height, selector}

	el.SetStyle("background-color", highlightBackground)
	el.SetStyle("outline", highlightOutline)
	el.SetStyle("transition", highlightTransition)
	r.highlighted = el

	// Scrolls only when the element is not already visible; the page
	// decides based on its viewport.
	r.page.ScrollIntoView(el)

	if hasRect {
		r.page.ShowIndicator(rect.X+rect.Width/2-indicatorHalfWidth, rect.Y+rect.Height+indicatorGap)
	}

	r.observing = true

	data, err := json.MarshalIndent(coordinates, "", "  ")
	if err != nil {
		return fmt.Sprintf("Element with selector %q highlighted", selector)
	}
	return string(data)
}

// removeHighlight clears the indicator, reverts the highlighted element, and
// stops observation. Callers hold r.mu.
func (r *Registry) removeHighlight() string {
	r.page.HideIndicator()

	if r.highlighted != nil {
		r.highlighted.RemoveStyle("background-color")
		r.highlighted.RemoveStyle("outline")
		r.highlighted.RemoveStyle("transition")
		r.highlighted = nil
	}

	r.observing = false
	return removedResult
}
