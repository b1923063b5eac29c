package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	memory  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autoinvest",
	Short: "Autoinvest - 자동 매매 판단/실행 파이프라인",
	Long: `Autoinvest Unified CLI

워치리스트 종목마다 시장 상태 확인, 지표 수집, LLM 자문,
정책 판단, 주문 실행, 감사 로그 기록까지 한 번의 런으로 처리합니다.

Usage:
  go run ./cmd/autoinvest [command]

Examples:
  go run ./cmd/autoinvest serve
  go run ./cmd/autoinvest run --manual
  go run ./cmd/autoinvest migrate
  go run ./cmd/autoinvest watchlist import seed.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&memory, "memory", false, "use the in-memory store instead of Postgres")
}
