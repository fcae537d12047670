// Package engine drives the request/response/action cycle: it records the
// triggering input, assembles the page context, talks to the model, renders
// text, and dispatches function calls in model order.
//
// Triggers are serialized through a single-consumer queue. A trigger that
// arrives while a cycle is in flight waits for its turn, so the two logs are
// never mutated by interleaved cycles.
package engine

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/convo"
	"github.com/andrewckor/kip-ai/internal/log"
	"github.com/andrewckor/kip-ai/internal/model"
	"github.com/andrewckor/kip-ai/internal/page"
)

// User-visible failure messages. Failures before the model call and failures
// while handling its response read differently, matching the widget's
// original wording.
const (
	requestApology  = "Sorry, I encountered an error processing your request."
	responseApology = "Sorry, I encountered an error processing the response."
)

const triggerQueueSize = 16

var (
	ErrEmptyInput    = errors.New("engine: empty input")
	ErrQueueFull     = errors.New("engine: trigger queue is full")
	ErrCaptureFailed = errors.New("engine: viewport capture failed")
)

// Shell receives display-log additions as they happen so a host UI can
// render them. Implementations must not block.
type Shell interface {
	AddMessage(text string, isUser bool)
}

// Speaker receives finalized bot text keyed by its display-log index so
// playback state can be tracked per message.
type Speaker interface {
	Speak(index int, text string)
}

type trigger struct {
	text string
	// auto marks interaction-tracker triggers, which reuse the same cycle
	// as user-typed input.
	auto bool
}

// Deps carries the engine's collaborators. Speaker is optional, everything
// else is required.
type Deps struct {
	Config    *config.Config
	State     *convo.State
	Registry  *action.Registry
	Generator model.Generator
	Page      page.Page
	Capturer  page.Capturer
	Shell     Shell
	Speaker   Speaker
	Logger    log.Logger
}

// Engine owns one widget instance's cycle loop. All mutable conversation
// state lives in its collaborators; the engine itself only coordinates.
type Engine struct {
	cfg         *config.Config
	state       *convo.State
	registry    *action.Registry
	gen         model.Generator
	page        page.Page
	capturer    page.Capturer
	shell       Shell
	speaker     Speaker
	instruction string
	triggers    chan trigger
	logger      log.Logger
	tracer      trace.Tracer
}

func New(d Deps) (*Engine, error) {
	switch {
	case d.Config == nil:
		return nil, errors.New("engine: config is required")
	case d.State == nil:
		return nil, errors.New("engine: conversation state is required")
	case d.Registry == nil:
		return nil, errors.New("engine: action registry is required")
	case d.Generator == nil:
		return nil, errors.New("engine: generator is required")
	case d.Page == nil:
		return nil, errors.New("engine: page is required")
	case d.Capturer == nil:
		return nil, errors.New("engine: capturer is required")
	case d.Shell == nil:
		return nil, errors.New("engine: shell is required")
	case d.Logger == nil:
		return nil, errors.New("engine: logger is required")
	}

	return &Engine{
		cfg:         d.Config,
		state:       d.State,
		registry:    d.Registry,
		gen:         d.Generator,
		page:        d.Page,
		capturer:    d.Capturer,
		shell:       d.Shell,
		speaker:     d.Speaker,
		instruction: buildInstruction(d.Registry.Declarations()),
		triggers:    make(chan trigger, triggerQueueSize),
		logger:      d.Logger,
		tracer:      otel.Tracer("kip/engine"),
	}, nil
}

// Submit enqueues a user-typed message for the next free cycle.
func (e *Engine) Submit(text string) error {
	return e.enqueue(trigger{text: strings.TrimSpace(text)})
}

// Notify enqueues an interaction notification produced by the tracker. It
// runs through the same cycle as user input.
func (e *Engine) Notify(text string) error {
	return e.enqueue(trigger{text: strings.TrimSpace(text), auto: true})
}

func (e *Engine) enqueue(t trigger) error {
	if t.text == "" {
		return ErrEmptyInput
	}
	select {
	case e.triggers <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes triggers one cycle at a time until ctx is cancelled. Cycle
// failures are absorbed; only cancellation ends the loop.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-e.triggers:
			e.runCycle(ctx, t)
		}
	}
}

// runCycle walks one trigger through recording, assembly, dispatch and
// response handling. Every failure is converted to an apology on the display
// log; nothing escapes the cycle boundary.
func (e *Engine) runCycle(ctx context.Context, t trigger) {
	ctx, span := e.tracer.Start(ctx, "engine.cycle",
		trace.WithAttributes(attribute.Bool("trigger.auto", t.auto)))
	defer span.End()

	// The user's own message is durable before any fallible work.
	e.state.RecordUser(ctx, t.text)
	e.shell.AddMessage(t.text, true)

	pl, err := e.assemble(ctx, t.text)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("context assembly failed", "error", err)
		e.notice(ctx, requestApology)
		return
	}

	// The trailing user turn is omitted from history: the payload being
	// sent now carries it in-band.
	reply, err := e.gen.Generate(ctx, &model.Request{
		Instruction: e.instruction,
		History:     e.state.HistoryForRequest(),
		Text:        pl.text,
		Image:       pl.shot,
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Error("model request failed", "error", err)
		e.notice(ctx, requestApology)
		return
	}

	for turn := 1; ; turn++ {
		e.render(ctx, reply)

		calls := reply.Calls()
		if len(calls) == 0 {
			return
		}

		outcomes := make([]action.Outcome, 0, len(calls))
		for _, call := range calls {
			outcomes = append(outcomes, e.registry.Dispatch(call))
		}

		if !e.cfg.FeedbackResults {
			return
		}
		if turn >= e.cfg.MaxTurns {
			e.logger.Warn("feedback turn limit reached", "max_turns", e.cfg.MaxTurns)
			return
		}

		reply, err = e.gen.Continue(ctx, reply, outcomes)
		if err != nil {
			span.RecordError(err)
			e.logger.Error("model continuation failed", "error", err)
			e.notice(ctx, responseApology)
			return
		}
	}
}

// render joins the reply's text fragments into one display message. Text is
// always rendered before any of the reply's function calls run.
func (e *Engine) render(ctx context.Context, reply *model.Reply) {
	var fragments []string
	for _, part := range reply.Parts {
		if part.Call == nil && part.Text != "" {
			fragments = append(fragments, part.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(fragments, "\n"))
	if text == "" {
		return
	}

	_, index := e.state.RecordModel(ctx, text)
	e.shell.AddMessage(text, false)
	if e.speaker != nil {
		e.speaker.Speak(index, text)
	}
}

// notice puts client-side error text on the display log only. The model
// never sees it.
func (e *Engine) notice(ctx context.Context, text string) {
	e.state.RecordNotice(ctx, text)
	e.shell.AddMessage(text, false)
}
