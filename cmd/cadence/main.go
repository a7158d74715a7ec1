package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		slog.Debug(".env loaded")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
