package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "봇 설정 관리",
	Long: `저장된 봇 설정을 조회하거나 YAML 시드 파일로 교체합니다.

Example:
  go run ./cmd/autoinvest config show
  go run ./cmd/autoinvest config import seed.yaml`,
}

// configShowCmd represents the show subcommand
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "현재 봇 설정 출력 (JSON)",
	RunE:  runConfigShow,
}

// configImportCmd represents the import subcommand
var configImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "시드 파일의 config 섹션 적용",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigImport,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configImportCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	configs, _, _, closer, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer()

	bc, err := configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load bot config: %w", err)
	}
	hash, err := botconfig.Hash(bc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bc); err != nil {
		return err
	}
	fmt.Printf("\nhash: %s\n", hash)
	return nil
}

func runConfigImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	seed, _, err := botconfig.LoadSeed(args[0])
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	if seed.Config == nil {
		return fmt.Errorf("%s has no config section", args[0])
	}
	bc, err := seed.Config.BotConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	configs, _, _, closer, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer()

	saved, err := configs.Update(ctx, bc)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	hash, _ := botconfig.Hash(saved)
	fmt.Printf("✅ Config applied (hash %s)\n", shortHash(hash))
	return nil
}
