package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/convo"
	"github.com/andrewckor/kip-ai/internal/log"
)

// continuation carries the raw exchange needed to feed function results
// back to the model. The system instruction rides along so every follow-up
// call in the feedback loop keeps the same preamble.
type continuation struct {
	instruction string
	messages    []*ai.Message
	requests    []*ai.ToolRequest
}

// Gemini is the Generator backed by the Gemini API through Genkit.
//
// Tool requests are returned to the caller rather than executed by Genkit's
// own loop: the engine owns dispatch order and result feedback.
type Gemini struct {
	g         *genkit.Genkit
	modelName string
	genConfig *genai.GenerateContentConfig
	tools     []ai.ToolRef
	limiter   *rate.Limiter
	retry     RetryConfig
	logger    log.Logger

	// generate performs one wire call. Tests swap it for a stub.
	generate func(ctx context.Context, instruction string, messages []*ai.Message) (*ai.ModelResponse, error)
}

// NewGemini initializes Genkit with the Google AI plugin (GEMINI_API_KEY is
// read from the environment) and registers the page actions as tools.
func NewGemini(ctx context.Context, cfg *config.Config, decls []action.Declaration, logger log.Logger) (*Gemini, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	tools, err := defineTools(g, decls)
	if err != nil {
		return nil, err
	}

	// Zero limiter values fall back to defaults, matching the other
	// generation knobs.
	rps := cfg.ModelRPS
	if rps <= 0 {
		rps = config.DefaultModelRPS
	}
	burst := cfg.ModelBurst
	if burst <= 0 {
		burst = config.DefaultModelBurst
	}

	gem := &Gemini{
		g:         g,
		modelName: cfg.FullModelName(),
		genConfig: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: int32(cfg.MaxTokens),
		},
		tools:   tools,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}
	gem.generate = gem.generateLive
	return gem, nil
}

// defineTools registers each declaration with Genkit. The handlers are
// never invoked: generation runs with returned tool requests, so execution
// stays with the engine.
func defineTools(g *genkit.Genkit, decls []action.Declaration) ([]ai.ToolRef, error) {
	tools := make([]ai.ToolRef, 0, len(decls))
	for _, d := range decls {
		switch d.Name {
		case action.HighlightName:
			tools = append(tools, genkit.DefineTool(g, d.Name, d.Description,
				func(_ *ai.ToolContext, _ action.HighlightParams) (string, error) {
					return "", fmt.Errorf("%s is dispatched by the conversation engine", action.HighlightName)
				}))
		case action.RemoveHighlightName:
			tools = append(tools, genkit.DefineTool(g, d.Name, d.Description,
				func(_ *ai.ToolContext, _ action.RemoveHighlightParams) (string, error) {
					return "", fmt.Errorf("%s is dispatched by the conversation engine", action.RemoveHighlightName)
				}))
		default:
			return nil, fmt.Errorf("no tool registration for action %q", d.Name)
		}
	}
	return tools, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req *Request) (*Reply, error) {
	messages := historyMessages(req.History)

	parts := []*ai.Part{ai.NewTextPart(req.Text)}
	if req.Image != nil {
		parts = append(parts, ai.NewMediaPart(req.Image.MIMEType,
			"data:"+req.Image.MIMEType+";base64,"+req.Image.Base64))
	}
	messages = append(messages, ai.NewUserMessage(parts...))

	return g.exchange(ctx, req.Instruction, messages)
}

// Continue implements Generator. outcomes are paired with the reply's tool
// requests by position.
func (g *Gemini) Continue(ctx context.Context, reply *Reply, outcomes []action.Outcome) (*Reply, error) {
	if reply.cont == nil {
		return nil, fmt.Errorf("reply has no continuation state")
	}
	if len(outcomes) != len(reply.cont.requests) {
		return nil, fmt.Errorf("got %d outcomes for %d tool requests",
			len(outcomes), len(reply.cont.requests))
	}

	responses := make([]*ai.Part, len(outcomes))
	for i, out := range outcomes {
		req := reply.cont.requests[i]
		responses[i] = ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: out.Result,
		})
	}

	messages := append(reply.cont.messages, ai.NewMessage(ai.RoleTool, nil, responses...))
	return g.exchange(ctx, reply.cont.instruction, messages)
}

// exchange runs one generate call and parses the response.
func (g *Gemini) exchange(ctx context.Context, instruction string, messages []*ai.Message) (*Reply, error) {
	resp, err := g.generate(ctx, instruction, messages)
	if err != nil {
		return nil, err
	}

	return parseResponse(instruction, messages, resp), nil
}

// generateLive builds the wire request and runs it with rate limiting and
// retry. It is the production generate function.
func (g *Gemini) generateLive(ctx context.Context, instruction string, messages []*ai.Message) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(g.modelName),
		ai.WithMessages(messages...),
		ai.WithTools(g.tools...),
		ai.WithConfig(g.genConfig),
		ai.WithReturnToolRequests(true),
	}
	if instruction != "" {
		opts = append(opts, ai.WithSystem(instruction))
	}

	return g.generateWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, g.g, opts...)
	})
}

// parseResponse converts a model response into reply parts, preserving the
// model's part order.
func parseResponse(instruction string, sent []*ai.Message, resp *ai.ModelResponse) *Reply {
	reply := &Reply{
		cont: &continuation{instruction: instruction, messages: sent},
	}
	if resp.Message == nil {
		return reply
	}

	reply.cont.messages = append(reply.cont.messages, resp.Message)
	for _, part := range resp.Message.Content {
		switch {
		case part.IsToolRequest():
			reply.cont.requests = append(reply.cont.requests, part.ToolRequest)
			reply.Parts = append(reply.Parts, Part{Call: &action.Call{
				Name: part.ToolRequest.Name,
				Args: argsMap(part.ToolRequest.Input),
			}})
		case part.IsText():
			reply.Parts = append(reply.Parts, Part{Text: part.Text})
		}
	}
	return reply
}

// historyMessages converts persisted turns to model messages.
func historyMessages(history []convo.Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		parts := make([]*ai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, ai.NewTextPart(p.Text))
		}

		role := ai.RoleUser
		if turn.Role == convo.RoleModel {
			role = ai.RoleModel
		}
		messages = append(messages, ai.NewMessage(role, nil, parts...))
	}
	return messages
}

// argsMap normalizes a tool request input to the registry's argument form.
func argsMap(input any) map[string]any {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]any); ok {
		return m
	}

	// Typed inputs round-trip through JSON.
	data, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
