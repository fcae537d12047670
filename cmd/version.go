package cmd

import (
	"fmt"
	"os"

	"github.com/andrewckor/kip-ai/internal/config"
)

func runVersion() error {
	fmt.Printf("Kip %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration: not loaded (%v)\n", err)
		return nil
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  History bound: %d messages\n", cfg.MaxHistoryMessages)
	fmt.Printf("  Feedback loop: %t (max %d turns)\n", cfg.FeedbackResults, cfg.MaxTurns)
	fmt.Printf("  Storage: %s\n", cfg.StorageBackend)
	if cfg.StorageBackend == config.StorageFile {
		fmt.Printf("  Storage dir: %s\n", cfg.StorageDir)
	}

	// Show key presence only, never the full value.
	if key := os.Getenv("GEMINI_API_KEY"); len(key) >= 8 {
		fmt.Printf("  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  GEMINI_API_KEY: Not set")
		fmt.Println()
		fmt.Println("Hint: Please set GEMINI_API_KEY environment variable")
		fmt.Println("  export GEMINI_API_KEY=your-api-key")
	}

	return nil
}
