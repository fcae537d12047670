package model

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/convo"
)

func TestHistoryMessages(t *testing.T) {
	t.Parallel()

	history := []convo.Turn{
		{Role: convo.RoleUser, Parts: []convo.TextPart{{Text: "highlight the signup button"}}},
		{Role: convo.RoleModel, Parts: []convo.TextPart{{Text: "Done."}, {Text: "Anything else?"}}},
	}

	messages := historyMessages(history)
	require.Len(t, messages, 2)

	assert.Equal(t, ai.RoleUser, messages[0].Role)
	require.Len(t, messages[0].Content, 1)
	assert.Equal(t, "highlight the signup button", messages[0].Content[0].Text)

	assert.Equal(t, ai.RoleModel, messages[1].Role)
	require.Len(t, messages[1].Content, 2)
	assert.Equal(t, "Done.", messages[1].Content[0].Text)
	assert.Equal(t, "Anything else?", messages[1].Content[1].Text)
}

func TestArgsMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  map[string]any
	}{
		{
			name:  "nil input",
			input: nil,
			want:  nil,
		},
		{
			name:  "already a map",
			input: map[string]any{"selector": "#signup"},
			want:  map[string]any{"selector": "#signup"},
		},
		{
			name:  "typed struct round-trips",
			input: action.HighlightParams{Selector: ".cta"},
			want:  map[string]any{"selector": ".cta"},
		},
		{
			name:  "non-object input",
			input: "not an object",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, argsMap(tt.input))
		})
	}
}

func TestParseResponsePreservesOrder(t *testing.T) {
	t.Parallel()

	sent := []*ai.Message{ai.NewUserMessage(ai.NewTextPart("highlight it"))}
	resp := &ai.ModelResponse{
		Message: ai.NewMessage(ai.RoleModel, nil,
			ai.NewTextPart("Highlighting now."),
			ai.NewToolRequestPart(&ai.ToolRequest{
				Ref:   "call-1",
				Name:  action.HighlightName,
				Input: map[string]any{"selector": "#signup"},
			}),
			ai.NewTextPart("Let me know if that helps."),
		),
	}

	reply := parseResponse("You are an AI assistant helping users navigate a web application.", sent, resp)
	require.Len(t, reply.Parts, 3)

	assert.Equal(t, "Highlighting now.", reply.Parts[0].Text)
	assert.Nil(t, reply.Parts[0].Call)

	require.NotNil(t, reply.Parts[1].Call)
	assert.Equal(t, action.HighlightName, reply.Parts[1].Call.Name)
	assert.Equal(t, map[string]any{"selector": "#signup"}, reply.Parts[1].Call.Args)

	assert.Equal(t, "Let me know if that helps.", reply.Parts[2].Text)

	// Continuation state carries the instruction, the full exchange and the
	// ordered requests, so feedback-loop calls repeat the same preamble.
	require.NotNil(t, reply.cont)
	assert.Equal(t, "You are an AI assistant helping users navigate a web application.", reply.cont.instruction)
	assert.Len(t, reply.cont.messages, 2)
	require.Len(t, reply.cont.requests, 1)
	assert.Equal(t, "call-1", reply.cont.requests[0].Ref)
}

func TestParseResponseNilMessage(t *testing.T) {
	t.Parallel()

	reply := parseResponse("", nil, &ai.ModelResponse{})
	assert.Empty(t, reply.Parts)
	assert.Empty(t, reply.Calls())
}

func TestContinueKeepsInstruction(t *testing.T) {
	t.Parallel()

	// A reply chained through tool turns must send the same system
	// preamble on every wire call, not only the first one.
	var instructions []string
	responses := []*ai.ModelResponse{
		{Message: ai.NewMessage(ai.RoleModel, nil,
			ai.NewToolRequestPart(&ai.ToolRequest{
				Ref:   "call-1",
				Name:  action.HighlightName,
				Input: map[string]any{"selector": "#a"},
			}),
		)},
		{Message: ai.NewMessage(ai.RoleModel, nil, ai.NewTextPart("done"))},
	}

	g := &Gemini{}
	g.generate = func(_ context.Context, instruction string, _ []*ai.Message) (*ai.ModelResponse, error) {
		instructions = append(instructions, instruction)
		resp := responses[0]
		responses = responses[1:]
		return resp, nil
	}

	first, err := g.exchange(context.Background(), "system preamble", []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("highlight the signup button")),
	})
	require.NoError(t, err)
	require.NotNil(t, first.cont)
	require.Len(t, first.cont.requests, 1)

	next, err := g.Continue(context.Background(), first, []action.Outcome{
		{Result: "Successfully highlighted element: #a"},
	})
	require.NoError(t, err)
	require.NotNil(t, next.cont)

	assert.Equal(t, []string{"system preamble", "system preamble"}, instructions)
	assert.Equal(t, "system preamble", next.cont.instruction)
}

func TestReplyCalls(t *testing.T) {
	t.Parallel()

	reply := &Reply{Parts: []Part{
		{Text: "first"},
		{Call: &action.Call{Name: action.HighlightName, Args: map[string]any{"selector": "#a"}}},
		{Call: &action.Call{Name: action.RemoveHighlightName}},
	}}

	calls := reply.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, action.HighlightName, calls[0].Name)
	assert.Equal(t, action.RemoveHighlightName, calls[1].Name)
}
