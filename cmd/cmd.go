// Package cmd provides the kip command line interface.
//
// Commands:
//   - chat: interactive console harness driving the assistant engine
//     against a local HTML snapshot of a page
//   - history: list, show and clear persisted conversations
//   - version: version and configuration summary
//
// The chat command handles graceful shutdown via context cancellation; an
// in-flight model call is aborted when the process is interrupted.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the kip CLI.
func Execute() error {
	// version and help work even when the config is invalid.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return runVersion()
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}

	logger := initLogger()
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printHelp()
		return nil
	}

	switch os.Args[1] {
	case "chat":
		return runChat(os.Args[2:], logger)
	case "history":
		return runHistory(os.Args[2:], logger)
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// initLogger builds the process logger. DEBUG in the environment lowers the
// level to debug.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

// checkAPIKey verifies GEMINI_API_KEY is set, printing setup instructions
// when it is not.
func checkAPIKey(cfg *config.Config) error {
	if err := cfg.ValidateAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Kip requires a Gemini API key to talk to the model.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return err
	}
	return nil
}

func printHelp() {
	fmt.Println("Kip - embeddable in-page AI assistant engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kip chat <page.html> [flags]   Chat about a saved page snapshot")
	fmt.Println("  kip history list               List stored conversation domains")
	fmt.Println("  kip history show <domain>      Print a domain's conversation")
	fmt.Println("  kip history clear <domain>     Delete a domain's conversation")
	fmt.Println("  kip version                    Show version information")
	fmt.Println("  kip help                       Show this help")
	fmt.Println()
	fmt.Println("Chat flags:")
	fmt.Println("  -url <url>                     Page URL used for context and domain key")
	fmt.Println("  -screenshot <file.png>         Screenshot sent alongside the HTML")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /click <tag> [id]              Simulate a page click")
	fmt.Println("  /clear                         Clear conversation history")
	fmt.Println("  /help                          Show available commands")
	fmt.Println("  /exit, /quit                   Exit kip")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/andrewckor/kip-ai")
}
