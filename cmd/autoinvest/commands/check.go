package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/autoinvest/backend/internal/external/alphavantage"
	"github.com/wonny/autoinvest/backend/internal/external/angel"
	"github.com/wonny/autoinvest/backend/internal/external/llm"
	"github.com/wonny/autoinvest/backend/internal/external/nse"
	"github.com/wonny/autoinvest/backend/internal/external/telegram"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/database"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/redis"
	"github.com/wonny/autoinvest/backend/pkg/secrets"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "외부 연결 점검",
	Long: `실행 전에 필요한 연결과 자격 증명을 점검합니다.

이 명령어는:
- config 로드 및 DATABASE_URL 확인
- 데이터베이스 Ping / Health Check / Pool 통계
- Redis 연결
- 시크릿 존재 여부 (값은 출력하지 않음)
- NSE 시장 상태 조회
- --broker 지정 시 SmartAPI 로그인

Example:
  go run ./cmd/autoinvest check
  go run ./cmd/autoinvest check --broker`,
	RunE: runCheck,
}

var (
	checkBroker bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	// Flags
	checkCmd.Flags().BoolVar(&checkBroker, "broker", false, "SmartAPI 로그인까지 시도")
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Autoinvest Connectivity Check ===")

	cfg, log, err := loadBase()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s, broker: %s)\n", cfg.Env, cfg.Angel.Mode)
	fmt.Printf("   Database URL: %s\n\n", maskURL(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0

	// Database
	if cfg.StorageBackend == "postgres" {
		db, err := database.New(ctx, cfg)
		if err != nil {
			fmt.Printf("❌ Database: %v\n", err)
			failed++
		} else {
			status, err := db.HealthCheck(ctx)
			if err != nil {
				fmt.Printf("❌ Database health: %v\n", err)
				failed++
			} else {
				fmt.Printf("✅ Database (%v)\n", status.ResponseTime)
				fmt.Printf("   Connections: %d/%d (idle %d)\n", status.Stats.TotalConns, status.Stats.MaxConns, status.Stats.IdleConns)
			}
			db.Close()
		}
	}

	// Redis
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, cfg)
		if err != nil {
			fmt.Printf("⚠️  Redis: %v (pipeline continues without cache)\n", err)
		} else {
			fmt.Println("✅ Redis")
			rdb.Close()
		}
	} else {
		fmt.Println("ℹ️  Redis disabled")
	}

	// Secrets
	store, closeSecrets, err := secrets.Open(ctx, cfg, log)
	if err != nil {
		fmt.Printf("❌ Secrets backend (%s): %v\n", cfg.SecretsBackend, err)
		return fmt.Errorf("%d check(s) failed", failed+1)
	}
	defer closeSecrets()

	fmt.Printf("\n🔑 Secrets (%s)\n", cfg.SecretsBackend)
	for _, key := range []string{
		angel.KeyAPIKey, angel.KeyClientID, angel.KeyPassword, angel.KeyTOTPSecret,
		llm.KeyAPIKey, telegram.KeyBotToken, alphavantage.KeyAPIKey,
	} {
		if _, err := store.Get(ctx, key); err != nil {
			fmt.Printf("   %-22s missing\n", key)
			continue
		}
		fmt.Printf("   %-22s set\n", key)
	}
	fmt.Println()

	// Market status
	nseClient := nse.NewClient(cfg.NSE, httputil.New(log), nil, log)
	raw, err := nseClient.MarketStatus(ctx)
	if err != nil {
		fmt.Printf("⚠️  NSE market status: %v\n", err)
	} else {
		fmt.Printf("✅ NSE market status: %s\n", raw)
	}

	// Broker login
	if checkBroker {
		client := angel.NewClient(cfg.Angel, store, httputil.New(log), clock.Real{}, log)
		if err := client.Authenticate(ctx); err != nil {
			fmt.Printf("❌ SmartAPI login: %v\n", err)
			failed++
		} else {
			fmt.Println("✅ SmartAPI login")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Println("\n✅ All checks passed!")
	return nil
}

// maskURL hides the password of a connection URL
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
