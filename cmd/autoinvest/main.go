package main

import (
	"os"

	"github.com/wonny/autoinvest/backend/cmd/autoinvest/commands"
)

// main is the entry point for the autoinvest CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/autoinvest [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
