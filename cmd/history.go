package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/log"
)

func runHistory(args []string, logger log.Logger) error {
	if len(args) < 1 {
		return errors.New("usage: kip history <list|show|clear> [domain]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer closeStore()

	switch args[0] {
	case "list":
		return runHistoryList(ctx, store)
	case "show":
		if len(args) < 2 {
			return errors.New("usage: kip history show <domain>")
		}
		return runHistoryShow(ctx, store, args[1])
	case "clear":
		if len(args) < 2 {
			return errors.New("usage: kip history clear <domain>")
		}
		return runHistoryClear(ctx, store, args[1])
	default:
		return fmt.Errorf("unknown history subcommand: %s", args[0])
	}
}

func runHistoryList(ctx context.Context, store historyStore) error {
	domains, err := store.Domains(ctx)
	if err != nil {
		return fmt.Errorf("list domains: %w", err)
	}

	if len(domains) == 0 {
		fmt.Println("No stored conversations")
		return nil
	}

	fmt.Println("Stored conversations:")
	for _, domain := range domains {
		fmt.Printf("  %s\n", domain)
	}
	return nil
}

func runHistoryShow(ctx context.Context, store historyStore, domain string) error {
	snap, err := store.Load(ctx, domain)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	if len(snap.Messages) == 0 {
		fmt.Printf("No conversation stored for %s\n", domain)
		return nil
	}

	fmt.Printf("Domain: %s\n", domain)
	fmt.Printf("Messages: %d\n", len(snap.Messages))
	fmt.Println()

	for _, msg := range snap.Messages {
		role := "Kip"
		if msg.IsUser {
			role = "You"
		}
		fmt.Printf("%s> %s\n", role, msg.Content)
		fmt.Println()
	}
	return nil
}

func runHistoryClear(ctx context.Context, store historyStore, domain string) error {
	if err := store.Clear(ctx, domain); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	fmt.Printf("Cleared conversation for %s\n", domain)
	return nil
}
