package page

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// indicatorClass marks the floating cursor element injected into the body.
const indicatorClass = "floating-hand"

// Sentinel errors for snapshot construction.
var (
	// ErrEmptyDocument indicates the snapshot HTML was empty.
	ErrEmptyDocument = errors.New("empty document")

	// ErrInvalidViewport indicates non-positive viewport dimensions.
	ErrInvalidViewport = errors.New("invalid viewport size")
)

// Snapshot is a Page backed by a parsed HTML document. Style mutations and
// the indicator are applied to the parse tree, so HTML() reflects them.
//
// Parsed documents carry no layout information, so element geometry is
// unknown unless supplied through WithRects. All methods are safe for
// concurrent use.
type Snapshot struct {
	mu      sync.Mutex
	doc     *goquery.Document
	url     string
	width   int
	height  int
	rects   map[string]Rect
	scrollY float64
}

// SnapshotOption customizes a Snapshot.
type SnapshotOption func(*Snapshot)

// WithRects supplies bounding boxes for selectors, keyed by the exact
// selector string the model will use. Selectors without an entry report
// unknown geometry.
func WithRects(rects map[string]Rect) SnapshotOption {
	return func(s *Snapshot) {
		s.rects = rects
	}
}

// NewSnapshot parses rawHTML into a Snapshot for the given page URL and
// viewport size.
func NewSnapshot(rawHTML, url string, width, height int, opts ...SnapshotOption) (*Snapshot, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, ErrEmptyDocument
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	s := &Snapshot{
		doc:    doc,
		url:    url,
		width:  width,
		height: height,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve implements Page.
func (s *Snapshot) Resolve(selector string) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := safeFind(s.doc, selector)
	if err != nil || sel.Length() == 0 {
		return nil, false
	}
	return &snapshotElement{snap: s, sel: sel.First(), selector: selector}, true
}

// URL implements Page.
func (s *Snapshot) URL() string { return s.url }

// ViewportSize implements Page.
func (s *Snapshot) ViewportSize() (int, int) { return s.width, s.height }

// HTML implements Page. The serialization includes every style and indicator
// mutation applied since parse.
func (s *Snapshot) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	html, err := s.doc.Html()
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return html, nil
}

// ScrollIntoView implements Page. The element is centered vertically, but
// only when its rect is not already fully inside the visible viewport.
func (s *Snapshot) ScrollIntoView(el Element) {
	rect, ok := el.Rect()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	top := s.scrollY
	bottom := s.scrollY + float64(s.height)
	if rect.Y >= top && rect.Y+rect.Height <= bottom {
		return
	}

	y := rect.Y + rect.Height/2 - float64(s.height)/2
	if y < 0 {
		y = 0
	}
	s.scrollY = y
}

// ScrollOffset returns the current vertical scroll position.
func (s *Snapshot) ScrollOffset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollY
}

// ShowIndicator implements Page. The indicator is a floating div appended to
// the body, replacing any previous one.
func (s *Snapshot) ShowIndicator(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeIndicatorLocked()
	s.doc.Find("body").First().AppendHtml(fmt.Sprintf(
		`<div class=%q style="position: absolute; left: %.0fpx; top: %.0fpx;"></div>`,
		indicatorClass, x, y))
}

// HideIndicator implements Page.
func (s *Snapshot) HideIndicator() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeIndicatorLocked()
}

func (s *Snapshot) removeIndicatorLocked() {
	s.doc.Find("." + indicatorClass).Remove()
}

// safeFind wraps goquery's Find, which panics on selectors cascadia cannot
// parse. Bad selectors come straight from the model and must degrade to
// "not found".
func safeFind(doc *goquery.Document, selector string) (sel *goquery.Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()
	return doc.Find(selector), nil
}

// snapshotElement is an Element over a goquery selection. Style mutations
// rewrite the node's style attribute in place.
type snapshotElement struct {
	snap     *Snapshot
	sel      *goquery.Selection
	selector string
}

func (e *snapshotElement) Selector() string { return e.selector }

func (e *snapshotElement) SetStyle(property, value string) {
	e.snap.mu.Lock()
	defer e.snap.mu.Unlock()

	style, _ := e.sel.Attr("style")
	e.sel.SetAttr("style", setStyleProperty(style, property, value))
}

func (e *snapshotElement) RemoveStyle(property string) {
	e.snap.mu.Lock()
	defer e.snap.mu.Unlock()

	style, ok := e.sel.Attr("style")
	if !ok {
		return
	}
	updated := removeStyleProperty(style, property)
	if updated == "" {
		e.sel.RemoveAttr("style")
		return
	}
	e.sel.SetAttr("style", updated)
}

func (e *snapshotElement) Rect() (Rect, bool) {
	e.snap.mu.Lock()
	defer e.snap.mu.Unlock()

	r, ok := e.snap.rects[e.selector]
	return r, ok
}

// setStyleProperty returns the style attribute with property set to value,
// preserving declaration order for existing properties.
func setStyleProperty(style, property, value string) string {
	decls := parseStyle(style)
	replaced := false
	for i, d := range decls {
		if strings.EqualFold(d[0], property) {
			decls[i][1] = value
			replaced = true
			break
		}
	}
	if !replaced {
		decls = append(decls, [2]string{property, value})
	}
	return renderStyle(decls)
}

// removeStyleProperty returns the style attribute without the property.
func removeStyleProperty(style, property string) string {
	decls := parseStyle(style)
	kept := decls[:0]
	for _, d := range decls {
		if !strings.EqualFold(d[0], property) {
			kept = append(kept, d)
		}
	}
	return renderStyle(kept)
}

func parseStyle(style string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		decls = append(decls, [2]string{prop, value})
	}
	return decls
}

func renderStyle(decls [][2]string) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d[0]+": "+d[1])
	}
	return strings.Join(parts, "; ")
}
