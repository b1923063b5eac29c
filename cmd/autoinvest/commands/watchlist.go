package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// watchlistCmd represents the watchlist command
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "워치리스트 관리",
	Long: `워치리스트를 조회하거나 YAML 파일로 일괄 등록합니다.

Subcommands:
  list    - 등록된 종목 목록
  import  - YAML 시드 파일에서 등록/갱신

Example:
  go run ./cmd/autoinvest watchlist list
  go run ./cmd/autoinvest watchlist import seed.yaml`,
}

// watchlistListCmd represents the list subcommand
var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "워치리스트 조회",
	RunE:  runWatchlistList,
}

// watchlistImportCmd represents the import subcommand
var watchlistImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "YAML 시드 파일 가져오기",
	Long: `시드 파일의 watchlist 항목을 심볼 기준으로 생성 또는 갱신합니다.
파일 전체를 먼저 검증하므로 하나라도 잘못되면 아무것도 쓰지 않습니다.
config 섹션이 있으면 봇 설정도 함께 교체합니다.

Example:
  go run ./cmd/autoinvest watchlist import seed.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchlistImport,
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistImportCmd)
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, items, _, closer, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer()

	list, err := items.List(ctx)
	if err != nil {
		return fmt.Errorf("list watchlist: %w", err)
	}

	PrintHeader(fmt.Sprintf("Watchlist (%d)", len(list)))
	fmt.Printf("  %-12s %-5s %-10s %10s %12s %12s %s\n", "SYMBOL", "EXCH", "ACTION", "QTY", "AVG", "SIP", "NEXT")
	for _, it := range list {
		next := "-"
		if it.NextActionDate != nil {
			next = it.NextActionDate.In(cfg.Market.Location()).Format("2006-01-02")
		}
		fmt.Printf("  %-12s %-5s %-10s %10d %12s %12s %s\n",
			it.Symbol, it.Exchange, it.Action, it.Quantity,
			it.AvgPrice.StringFixed(2), it.SIPAmount.StringFixed(2), next)
	}
	return nil
}

func runWatchlistImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	configs, items, _, closer, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer()

	PrintHeader("Seed import: " + args[0])
	if err := applySeed(ctx, configs, items, args[0]); err != nil {
		return err
	}
	fmt.Println("\n✅ Import complete")
	return nil
}
