package app

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/passforge/wallet-sync-server/internal/config"
	"github.com/passforge/wallet-sync-server/internal/credential"
	"github.com/passforge/wallet-sync-server/internal/enrollment"
	"github.com/passforge/wallet-sync-server/internal/gym"
	"github.com/passforge/wallet-sync-server/internal/store"
	pkgsync "github.com/passforge/wallet-sync-server/internal/sync"
	"github.com/passforge/wallet-sync-server/internal/telemetry"
	"github.com/passforge/wallet-sync-server/internal/wallet"
)

// components holds the wired application dependencies shared by the serve and
// sync commands
type components struct {
	cfg        *config.Config
	store      store.Store
	engine     pkgsync.Engine
	enrollment *enrollment.Service
}

// buildComponents loads configuration and wires the store, clients, and engine
func buildComponents(ctx context.Context, configPath string) (*components, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.GetStorageType() == config.StorageTypeFile {
		if err := os.MkdirAll(cfg.GetDataDir(), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	s, err := store.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create user record store: %w", err)
	}

	gymClient := gym.NewClient(cfg.Gym.AuthURL, cfg.Gym.APIURL, cfg.Gym.ClientID, cfg.Gym.ClientSecret)

	key, err := wallet.LoadServiceAccountKey(cfg.Wallet.ServiceAccountKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet service account key: %w", err)
	}
	walletClient, err := wallet.NewClient(cfg.Wallet.IssuerID, cfg.Wallet.ClassSuffix, cfg.Wallet.Endpoint, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet client: %w", err)
	}

	creds := credential.NewManager(s, gymClient,
		credential.WithLookahead(cfg.Sync.GetCredentialLookahead()))

	metrics, err := telemetry.NewSyncMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	engine := pkgsync.NewEngine(s, creds, gymClient, walletClient,
		pkgsync.NewFixedDelayer(cfg.Sync.GetUserDelay()),
		pkgsync.WithMetrics(metrics))

	return &components{
		cfg:        cfg,
		store:      s,
		engine:     engine,
		enrollment: enrollment.NewService(s, gymClient, walletClient),
	}, nil
}
