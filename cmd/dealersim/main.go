// Command dealersim runs the reference dealer counterparty against a
// live bank engine for local development: it drains the dealer
// stream, answers with market-priced quotes, and publishes its
// responses back onto the same stream for the engine to pick up.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jinzhu/copier"

	"bankengine/config"
	"bankengine/internal/bank"
	"bankengine/internal/dealersim"
	"bankengine/internal/exchange"
	"bankengine/pkg/cache"
	"bankengine/pkg/logger"
	"bankengine/pkg/queue"
)

func kindOf(msg any) string {
	switch msg.(type) {
	case bank.QuoteResponse:
		return "QuoteResponse"
	case bank.SwapResponse:
		return "SwapResponse"
	case bank.FiatDepositResponse:
		return "FiatDepositResponse"
	case bank.InvoiceRequest:
		return "InvoiceRequest"
	default:
		return fmt.Sprintf("%T", msg)
	}
}

const (
	streamDealer = "bank.dealer"
	groupSim     = "dealer-sim"
	consumerSim  = "dealer-sim-1"
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

	provider, err := exchange.NewProvider("coinbase", "", nil)
	if err != nil {
		return fmt.Errorf("failed to build price provider: %w", err)
	}
	sim := dealersim.New(provider)

	sq := queue.NewStreamQueue(cache.Client)
	ctx := context.Background()
	if err := sq.DeclareStream(ctx, streamDealer, groupSim); err != nil {
		return fmt.Errorf("failed to declare %s stream: %w", streamDealer, err)
	}

	logger.Info("dealer simulator started")

	return sq.Consume(ctx, streamDealer, groupSim, consumerSim, func(messageID string, data []byte) error {
		env, err := queue.FromJSON(data)
		if err != nil {
			return fmt.Errorf("failed to decode envelope: %w", err)
		}
		responses, err := sim.Handle(ctx, env)
		if err != nil {
			return fmt.Errorf("failed to handle %s: %w", env.Kind, err)
		}
		for _, resp := range responses {
			respEnv, err := queue.NewEnvelope(kindOf(resp), resp)
			if err != nil {
				return fmt.Errorf("failed to build response envelope: %w", err)
			}
			data, err := respEnv.ToJSON()
			if err != nil {
				return fmt.Errorf("failed to serialize response envelope: %w", err)
			}
			if _, err := sq.Publish(ctx, streamDealer, data); err != nil {
				return fmt.Errorf("failed to publish response: %w", err)
			}
		}
		return nil
	})
}
