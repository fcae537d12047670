// Package page abstracts the host page the assistant operates on.
//
// The conversation engine never touches a real browser directly. It sees the
// page through two narrow contracts:
//
//   - Page: resolve CSS selectors to elements, mutate their inline styles,
//     place a floating indicator, and serialize the current document.
//   - Capturer: produce a screenshot of the current viewport as a base64
//     image blob.
//
// Snapshot is the built-in Page implementation backed by a parsed HTML
// document. It is what the console harness and the tests run against; an
// embedding into a live browser supplies its own Page and Capturer.
package page

import "context"

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a resolved page element. Style mutations must be visible in the
// owning Page's serialized HTML.
type Element interface {
	// Selector returns the selector the element was resolved from.
	Selector() string

	// SetStyle sets one inline style property, overwriting any previous
	// value for that property.
	SetStyle(property, value string)

	// RemoveStyle clears one inline style property.
	RemoveStyle(property string)

	// Rect reports the element's bounding box. ok is false when the
	// geometry is unknown, as for parsed snapshots without layout data.
	Rect() (r Rect, ok bool)
}

// Page is the host document the action registry mutates and the context
// assembler serializes.
type Page interface {
	// Resolve returns the first element matching the CSS selector, or
	// ok=false when nothing matches. Resolve never fails hard; a bad or
	// missing selector is an expected condition.
	Resolve(selector string) (el Element, ok bool)

	// URL returns the page's address as shown to the model.
	URL() string

	// ViewportSize returns the viewport dimensions in CSS pixels.
	ViewportSize() (width, height int)

	// HTML serializes the current document, including any style and
	// indicator mutations applied since load.
	HTML() (string, error)

	// ScrollIntoView brings the element into the visible viewport. Elements
	// already fully visible, and elements with unknown geometry, are left
	// alone.
	ScrollIntoView(el Element)

	// ShowIndicator places the floating cursor indicator at the given
	// viewport coordinates, replacing any previous one.
	ShowIndicator(x, y float64)

	// HideIndicator removes the floating cursor indicator if present.
	HideIndicator()
}

// Shot is a captured viewport image, ready for inline attachment to a model
// request.
type Shot struct {
	// Base64 is the raw image bytes, standard base64, no data: prefix.
	Base64 string

	// MIMEType is the image media type, for example "image/png".
	MIMEType string
}

// Capturer produces a screenshot of the current viewport. A nil Shot with a
// nil error is treated the same as an error: the cycle aborts before any
// model call.
type Capturer interface {
	Capture(ctx context.Context) (*Shot, error)
}
