package main

import (
	"os"

	"github.com/joho/godotenv"

	"linttrack/internal/logging"
)

func main() {
	// LINTTRACK_* overrides may live in a .env file next to the workspace
	_ = godotenv.Load()

	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
	})

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
