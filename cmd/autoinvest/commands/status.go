package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "최근 런/분석 로그 조회",
	Long: `저장소에 기록된 최근 런, 시장 상태, 종목 분석 로그를 출력합니다.

Example:
  go run ./cmd/autoinvest status
  go run ./cmd/autoinvest status --limit 20`,
	RunE: runStatus,
}

var (
	statusLimit int
)

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "출력할 항목 수")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	configs, _, st, closer, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer()

	bc, err := configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load bot config: %w", err)
	}

	PrintHeader("Bot")
	fmt.Printf("%-22s %v\n", "Active:", bc.IsActive)
	fmt.Printf("%-22s %v\n", "Auto execute:", bc.AutoExecuteTrades)
	fmt.Printf("%-22s %s\n", "Schedule:", bc.ScheduleType)
	fmt.Printf("%-22s %s\n", "Broker mode:", cfg.Angel.Mode)

	runs, err := st.Logs.ListRuns(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	PrintHeader("📊 Recent runs")
	for _, r := range runs {
		fmt.Printf("  %s  %-9s %-10s %3d items %3d executed  %s\n",
			r.StartedAt.In(cfg.Market.Location()).Format("2006-01-02 15:04"),
			r.TriggerType, r.Outcome, r.ItemsProcessed, r.ItemsExecuted, truncateText(r.Error, 40))
	}

	states, err := st.Logs.ListMarketStateLogs(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("list market state logs: %w", err)
	}
	PrintHeader("🕒 Market state")
	for _, s := range states {
		fmt.Printf("  %s  %-9s %-8s %s\n",
			s.Timestamp.In(cfg.Market.Location()).Format("2006-01-02 15:04"),
			s.TriggerType, s.Status, truncateText(s.Reason, 50))
	}

	logs, err := st.Logs.ListAnalysisLogs(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("list analysis logs: %w", err)
	}
	PrintHeader("📈 Analysis")
	for _, l := range logs {
		fmt.Printf("  %s  %-12s %-10s %-8s %s\n",
			l.Timestamp.In(cfg.Market.Location()).Format("2006-01-02 15:04"),
			l.Symbol, l.Action, l.AdvisoryDecision, l.ExecutionStatus)
	}
	return nil
}
