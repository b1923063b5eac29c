package commands

import (
	"context"
	"fmt"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/watchlist"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// openServices builds the config and watchlist services over the selected store
func openServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*botconfig.Service, *watchlist.Service, stores, func() error, error) {
	st, closer, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, stores{}, nil, err
	}
	configs := botconfig.NewService(st.Config, log)
	items := watchlist.NewService(st.Watchlist, cfg.Market.Exchange, cfg.Market.Location(), log)
	return configs, items, st, closer, nil
}

// applySeed writes the seed's config section (if any) and upserts its watchlist
func applySeed(ctx context.Context, configs *botconfig.Service, items *watchlist.Service, path string) error {
	seed, _, err := botconfig.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}

	if seed.Config != nil {
		bc, err := seed.Config.BotConfig()
		if err != nil {
			return fmt.Errorf("seed config: %w", err)
		}
		saved, err := configs.Update(ctx, bc)
		if err != nil {
			return fmt.Errorf("apply seed config: %w", err)
		}
		hash, _ := botconfig.Hash(saved)
		fmt.Printf("  config    : applied (hash %s)\n", shortHash(hash))
	}

	if len(seed.Watchlist) > 0 {
		res, err := items.Import(ctx, seed.Watchlist)
		if err != nil {
			return fmt.Errorf("import watchlist: %w", err)
		}
		fmt.Printf("  watchlist : %d created, %d updated\n", res.Created, res.Updated)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
