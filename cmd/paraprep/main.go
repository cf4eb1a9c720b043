// Command paraprep prepares the Paralympic Games editions table.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/paraprep/internal/cli"
	_ "github.com/JonMunkholm/paraprep/internal/prepare/recipes" // Register all recipes
)

func main() {
	// Load .env file if it exists; variables already set take precedence
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
