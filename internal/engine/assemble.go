package engine

import (
	"context"
	"fmt"

	"github.com/andrewckor/kip-ai/internal/page"
)

// payload is the multi-part model input for one logical message.
type payload struct {
	text string
	shot *page.Shot
}

// assemble builds the context payload fresh for every call. Page state is
// assumed to have changed between turns, so nothing here is cached.
func (e *Engine) assemble(ctx context.Context, message string) (*payload, error) {
	shot, err := e.capturer.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if shot == nil || shot.Base64 == "" {
		return nil, ErrCaptureFailed
	}

	html, err := e.page.HTML()
	if err != nil {
		return nil, fmt.Errorf("serialize page: %w", err)
	}
	width, height := e.page.ViewportSize()

	text := fmt.Sprintf("%s\n\nCurrent Page URL: %s\nViewport Size: %dx%d\n\nPage HTML:\n%s",
		message, e.page.URL(), width, height, html)

	return &payload{text: text, shot: shot}, nil
}
