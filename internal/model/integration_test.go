package model

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/page"
	"github.com/andrewckor/kip-ai/internal/testutil"
)

// TestGeminiGenerateLive exercises the real API. It needs GEMINI_API_KEY and
// is skipped otherwise.
func TestGeminiGenerateLive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live API test in short mode")
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	logger := testutil.DiscardLogger()

	snap, err := page.NewSnapshot("<html><body><button id=\"go\">Go</button></body></html>",
		"https://example.com", 800, 600)
	require.NoError(t, err)
	registry, err := action.NewRegistry(snap, logger)
	require.NoError(t, err)

	cfg := &config.Config{
		ModelName:   config.DefaultModelName,
		Temperature: 0.1,
		MaxTokens:   256,
	}

	gen, err := NewGemini(ctx, cfg, registry.Declarations(), logger)
	require.NoError(t, err)

	reply, err := gen.Generate(ctx, &Request{
		Instruction: "Answer in one short sentence. Do not call any tools.",
		Text:        "Say hello.",
	})
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.NotEmpty(t, reply.Parts)
}
