package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/scheduler"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "파이프라인 1회 실행",
	Long: `워치리스트 전체에 대해 파이프라인을 한 번 실행하고 결과를 출력합니다.

--manual 이면 MANUAL 트리거로 실행합니다 (is_active=false여도 실행,
시장 상태 확인 실패 시에도 진행). 기본값은 AUTOMATIC 트리거입니다.

--seed 는 실행 전에 YAML 시드 파일(config + watchlist)을 저장소에 반영합니다.
--memory 와 함께 쓰면 DB 없이 드라이런이 가능합니다.

Example:
  go run ./cmd/autoinvest run --manual
  go run ./cmd/autoinvest run --manual --memory --seed seed.yaml`,
	RunE: runOnce,
}

var (
	runManual bool
	runSeed   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().BoolVar(&runManual, "manual", false, "MANUAL 트리거로 실행")
	runCmd.Flags().StringVar(&runSeed, "seed", "", "실행 전에 적용할 YAML 시드 파일")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if runSeed != "" {
		if err := applySeed(ctx, a.configs, a.items, runSeed); err != nil {
			return err
		}
	}

	trigger := contracts.TriggerAutomatic
	if runManual {
		trigger = contracts.TriggerManual
	}

	dispatcher := scheduler.New(a.orchestrator, cfg.Market.Location(), log)
	PrintHeader(fmt.Sprintf("Pipeline run (%s)", trigger))

	start := time.Now()
	res, err := dispatcher.RunSync(ctx, trigger)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printRunResult(res.Run, res.Session.Reason, res.Items)
	fmt.Printf("\n✅ Run finished in %.2fs\n", time.Since(start).Seconds())
	return nil
}

func printRunResult(run contracts.RunLog, sessionReason string, items []contracts.AnalysisLog) {
	fmt.Printf("  Run ID    : %s\n", run.RunID)
	fmt.Printf("  Outcome   : %s\n", run.Outcome)
	if sessionReason != "" {
		fmt.Printf("  Session   : %s\n", sessionReason)
	}
	fmt.Printf("  Items     : %d processed, %d executed\n", run.ItemsProcessed, run.ItemsExecuted)
	if run.Error != "" {
		fmt.Printf("  Error     : %s\n", run.Error)
	}
	PrintDivider()

	if len(items) == 0 {
		fmt.Println("  (no items analysed)")
		return
	}

	fmt.Printf("  %-12s %-10s %-8s %-12s %s\n", "SYMBOL", "ACTION", "ADVICE", "STATUS", "DETAIL")
	for _, it := range items {
		detail := it.Detail
		if it.Error != "" {
			detail = it.Error
		}
		if it.OrderID != "" {
			detail = fmt.Sprintf("%s %d @ %s (order %s)", it.OrderSide, it.Quantity, it.Price.StringFixed(2), it.OrderID)
		}
		fmt.Printf("  %-12s %-10s %-8s %-12s %s\n", it.Symbol, it.Action, it.AdvisoryDecision, it.ExecutionStatus, truncateText(detail, 60))
	}
}
