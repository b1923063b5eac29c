package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/autoinvest/backend/internal/api"
	"github.com/wonny/autoinvest/backend/internal/api/auth"
	"github.com/wonny/autoinvest/backend/internal/api/handlers"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/realtime"
	"github.com/wonny/autoinvest/backend/internal/scheduler"
	"github.com/wonny/autoinvest/backend/pkg/clock"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 스케줄러 시작",
	Long: `REST API 서버와 런 스케줄러를 함께 시작합니다.

이 명령어는:
- 저장된 봇 설정으로 자동 실행 스케줄 등록
- 설정 변경 시 스케줄 즉시 재등록
- 대시보드 API 및 실시간 이벤트(websocket) 제공

Endpoints:
  GET    /health
  POST   /api/auth/token
  GET    /api/status
  POST   /api/run
  GET    /api/config              PUT /api/config
  GET    /api/watchlist           POST /api/watchlist
  GET    /api/watchlist/{symbol}  PUT/DELETE /api/watchlist/{symbol}
  GET    /api/logs
  GET    /api/market-state-logs
  GET    /api/runs
  GET    /api/portfolio
  GET    /api/reservations        DELETE /api/reservations/{symbol}
  POST   /api/notifications/test
  GET    /ws/events

Example:
  go run ./cmd/autoinvest serve
  go run ./cmd/autoinvest serve --port 9000 --memory`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본값: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Autoinvest API Server ===")

	// 1. Load config + logger
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"env":         cfg.Env,
		"broker_mode": cfg.Angel.Mode,
	}).Info("Initializing API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Wire the pipeline
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. Realtime hub
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	// 4. Dispatcher
	dispatcher := scheduler.New(a.orchestrator, cfg.Market.Location(), log)
	dispatcher.Start(ctx)
	// Deferred after a.Close so in-flight runs finish before storage closes
	defer dispatcher.Stop()

	a.configs.OnChange(func(bc contracts.BotConfig) {
		if err := dispatcher.ScheduleConfig(bc); err != nil {
			log.WithError(err).Error("Failed to reschedule after config change")
		}
		a.hub.Publish(realtime.Event{
			Type:      realtime.EventConfigUpdated,
			Timestamp: time.Now(),
			Payload:   bc,
		})
	})

	current, err := a.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load bot config: %w", err)
	}
	if err := dispatcher.ScheduleConfig(*current); err != nil {
		// An invalid stored schedule leaves automatic runs off until fixed via PUT /api/config
		log.WithError(err).Warn("Stored schedule is invalid, automatic runs disabled")
	}

	// 5. Handlers + router
	issuer := auth.NewIssuer(cfg.Auth, clock.Real{})
	router := api.NewRouter(api.Handlers{
		Auth:          handlers.NewAuthHandler(issuer, log),
		Run:           handlers.NewRunHandler(dispatcher, a.configs, a.broker, a.hub, cfg.Angel.Mode, log),
		Config:        handlers.NewConfigHandler(a.configs, log),
		Watchlist:     handlers.NewWatchlistHandler(a.items, log),
		Logs:          handlers.NewLogsHandler(a.stores.Logs, log),
		Portfolio:     handlers.NewPortfolioHandler(a.broker, a.ledger, log),
		Notifications: handlers.NewNotificationHandler(a.notify, cfg.Timeouts.Notify, log),
		Events:        a.hub,
	}, issuer, log)

	// 6. Server with graceful shutdown
	server := api.New(cfg, log, router)
	server.OnShutdown(stopHub)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Printf("   Broker mode : %s\n", cfg.Angel.Mode)
	fmt.Printf("   Auth        : %v\n", issuer.Enabled())
	if st := dispatcher.Status(); st.Scheduled {
		fmt.Printf("   Schedule    : %s\n", st.Schedule)
	} else {
		fmt.Println("   Schedule    : none (bot inactive)")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
