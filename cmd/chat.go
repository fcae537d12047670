package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/convo"
	"github.com/andrewckor/kip-ai/internal/engine"
	"github.com/andrewckor/kip-ai/internal/log"
	"github.com/andrewckor/kip-ai/internal/model"
	"github.com/andrewckor/kip-ai/internal/observability"
	"github.com/andrewckor/kip-ai/internal/page"
	"github.com/andrewckor/kip-ai/internal/track"
)

// placeholderPNG is a 1x1 transparent PNG used when no screenshot file is
// supplied. The console harness has no renderer, so a real capture is only
// available from a saved image.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// consoleShell prints bot messages to stdout. User messages are already on
// screen, typed at the prompt.
type consoleShell struct{}

func (consoleShell) AddMessage(text string, isUser bool) {
	if isUser {
		return
	}
	fmt.Printf("\nKip> %s\n", text)
}

func runChat(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	pageURL := fs.String("url", "", "page URL used for context and the domain key")
	screenshot := fs.String("screenshot", "", "screenshot file sent alongside the HTML")
	viewport := fs.String("viewport", "1280x800", "viewport size as WxH")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: kip chat [flags] <page.html>")
	}

	htmlPath := fs.Arg(0)
	rawHTML, err := os.ReadFile(htmlPath)
	if err != nil {
		return fmt.Errorf("read page snapshot: %w", err)
	}

	url := *pageURL
	if url == "" {
		abs, err := filepath.Abs(htmlPath)
		if err != nil {
			abs = htmlPath
		}
		url = "file://" + abs
	}

	width, height, err := parseViewport(*viewport)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := checkAPIKey(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	snapshot, err := page.NewSnapshot(string(rawHTML), url, width, height)
	if err != nil {
		return fmt.Errorf("parse page snapshot: %w", err)
	}

	registry, err := action.NewRegistry(snapshot, logger)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer closeStore()

	domain := convo.DomainKey(url)
	state := convo.NewState(domain, cfg.MaxHistoryMessages, store, logger)
	state.Load(ctx)

	gen, err := model.NewGemini(ctx, cfg, registry.Declarations(), logger)
	if err != nil {
		return fmt.Errorf("initialize model: %w", err)
	}

	var capturer page.Capturer
	if *screenshot != "" {
		capturer = &page.FileCapturer{Path: *screenshot}
	} else {
		capturer = page.CapturerFunc(func(context.Context) (*page.Shot, error) {
			return &page.Shot{Base64: placeholderPNG, MIMEType: "image/png"}, nil
		})
	}

	eng, err := engine.New(engine.Deps{
		Config:    cfg,
		State:     state,
		Registry:  registry,
		Generator: gen,
		Page:      snapshot,
		Capturer:  capturer,
		Shell:     consoleShell{},
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	tracker := track.New(registry.Observing, func(message string) {
		if err := eng.Notify(message); err != nil {
			logger.Warn("dropped interaction notification", "error", err)
		}
	}, logger)

	runDone := make(chan error, 1)
	go func() {
		runDone <- eng.Run(ctx)
	}()

	fmt.Printf("Kip %s - chatting about %s\n", AppVersion, url)
	fmt.Printf("Domain: %s\n", domain)
	printStoredMessages(state)
	fmt.Println("Type /help for commands, /exit to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
loop:
	for {
		fmt.Print("You> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleChatCommand(ctx, input, state, tracker, registry) {
				break loop
			}
			continue
		}

		if err := eng.Submit(input); err != nil {
			fmt.Fprintf(os.Stderr, "Could not submit message: %v\n", err)
		}
	}

	stop()
	<-runDone

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// handleChatCommand handles slash commands, returning true on exit.
func handleChatCommand(ctx context.Context, input string, state *convo.State, tracker *track.Tracker, registry *action.Registry) bool {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /click <tag> [id]   Simulate a page click")
		fmt.Println("  /clear              Clear conversation history")
		fmt.Println("  /help               Show this help")
		fmt.Println("  /exit, /quit        Exit kip")
		fmt.Println()

	case "/click":
		if len(parts) < 2 {
			fmt.Println("Usage: /click <tag> [id]")
			return false
		}
		target := track.Target{TagName: strings.ToUpper(parts[1])}
		if len(parts) > 2 {
			target.ID = parts[2]
		}
		if _, ok := tracker.Click(target, track.Position{}); !ok {
			fmt.Println("Click ignored (widget element)")
			return false
		}
		if registry.Observing() {
			fmt.Println("Click recorded and forwarded to the assistant")
		} else {
			fmt.Println("Click recorded")
		}

	case "/clear":
		state.Clear(ctx)
		fmt.Println("Conversation history cleared")
		fmt.Println()

	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true

	default:
		fmt.Printf("Unknown command: %s\n", parts[0])
		fmt.Println("Type /help to see available commands")
		fmt.Println()
	}

	return false
}

// printStoredMessages replays the persisted conversation so the session
// picks up where it left off.
func printStoredMessages(state *convo.State) {
	messages := state.Messages()
	if len(messages) == 0 {
		return
	}
	fmt.Printf("Restored %d messages:\n", len(messages))
	for _, msg := range messages {
		role := "Kip"
		if msg.IsUser {
			role = "You"
		}
		fmt.Printf("%s> %s\n", role, msg.Content)
	}
	fmt.Println()
}

// parseViewport parses a WxH string like "1280x800".
func parseViewport(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid viewport %q, expected WxH", s)
	}
	width, err = strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport height %q", h)
	}
	return width, height, nil
}
