package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"

	"bankengine/config"
	"bankengine/internal/bank"
	"bankengine/internal/database"
	"bankengine/internal/ledger"
	"bankengine/internal/lnd"
	"bankengine/internal/paytask"
	"bankengine/pkg/cache"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
	"bankengine/pkg/queue"
)

var Cfg config.BankConfig

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(logger.GetEnv()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Dir(filename)
	configPath := config.Path(root).Join("config.toml", "..", "..", "..")

	if err := config.Load(configPath, &Cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var redisCfg cache.Config
	if err := copier.Copy(&redisCfg, &Cfg.Redis); err != nil {
		return fmt.Errorf("failed to copy cache config: %w", err)
	}
	if err := cache.Init(redisCfg); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cache.Close()

	var dbCfg database.Config
	if err := copier.Copy(&dbCfg, &Cfg.Database); err != nil {
		return fmt.Errorf("failed to copy database config: %w", err)
	}
	db, err := database.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database connection: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database connected and migrated")

	var lndCfg lnd.Config
	if err := copier.Copy(&lndCfg, &Cfg.Lightning); err != nil {
		return fmt.Errorf("failed to copy lightning config: %w", err)
	}
	if Cfg.Lightning.MacaroonEncryptionKeyHex != "" {
		key, err := hex.DecodeString(Cfg.Lightning.MacaroonEncryptionKeyHex)
		if err != nil {
			return fmt.Errorf("failed to decode macaroon encryption key: %w", err)
		}
		lndCfg.MacaroonEncryptionKey = key
	}
	lndClient, err := lnd.NewClient(lndCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to lnd: %w", err)
	}
	driver := lnd.NewBankDriver(lndClient)

	ledgerRepo := database.NewLedgerRepository(db)
	invoiceRepo := database.NewInvoiceRepository(db)
	userRepo := database.NewUserRepository(db)
	lnurlRepo := database.NewLnurlRepository()

	cfg := bank.Config{
		DepositLimits: map[money.Currency]decimal.Decimal{
			money.BTC: decimal.NewFromFloat(Cfg.DepositLimits.BTC),
			money.USD: decimal.NewFromFloat(Cfg.DepositLimits.USD),
			money.EUR: decimal.NewFromFloat(Cfg.DepositLimits.EUR),
		},
		WithdrawalOnly:     Cfg.WithdrawalOnly,
		LnNetworkFeeMargin: decimal.NewFromFloat(Cfg.LnNetworkFeeMargin),
		DepositRateLimit: bank.RateLimitSettings{
			RequestLimit:          Cfg.RateLimit.DepositRequestLimit,
			ReplenishmentInterval: time.Duration(Cfg.RateLimit.DepositReplenishmentIntervalMs) * time.Millisecond,
		},
		WithdrawalRateLimit: bank.RateLimitSettings{
			RequestLimit:          Cfg.RateLimit.WithdrawalRequestLimit,
			ReplenishmentInterval: time.Duration(Cfg.RateLimit.WithdrawalReplenishmentIntervalMs) * time.Millisecond,
		},
		BitcoinNetwork: Cfg.Lightning.Network,
	}

	results := make(chan bank.PaymentResult, 64)
	pool := paytask.New()

	engine := bank.New(ledger.New(), ledgerRepo, invoiceRepo, lnurlRepo, driver, userRepo, pool, results, cfg)

	sq := queue.NewStreamQueue(cache.Client)
	transport := newTransport(engine, sq)

	logger.Info("bank engine started")

	go transport.drainResults(ctx, results)
	return transport.consume(ctx)
}
