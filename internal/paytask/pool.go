// Package paytask detaches Lightning pay attempts from the bank
// dispatcher's single-writer loop so a slow or stuck route never
// blocks the next message. A spawned attempt holds no ledger
// reference; the dispatcher reconciles the outcome once it rejoins on
// the results channel.
package paytask

import (
	"context"

	"go.uber.org/zap"

	"bankengine/internal/bank"
	"bankengine/internal/ledger"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

// Pool spawns one goroutine per pay attempt, with no bound on how many
// run at once; each request has already reserved its funds before
// Spawn is called.
type Pool struct{}

// New returns a ready-to-use pool.
func New() *Pool {
	return &Pool{}
}

// Spawn implements bank.PaySpawner.
func (p *Pool) Spawn(ctx context.Context, job bank.PayJob, driver bank.Driver, results chan<- bank.PaymentResult) {
	go func() {
		result, err := driver.PayInvoice(ctx, job.PaymentRequest, job.MaxFeeSats)
		if err != nil {
			logger.Error("paytask: pay attempt failed", zap.String("payment_request", job.PaymentRequest), zap.Error(err))
			results <- bank.PaymentResult{
				ReqID:          job.ReqID,
				UID:            ledger.UserID(job.UID),
				Currency:       job.Currency,
				Amount:         job.Amount,
				ReservedFee:    job.ReservedFee,
				PaymentRequest: job.PaymentRequest,
				Success:        false,
				Rate:           job.Rate,
			}
			return
		}

		actualFee := money.FromSats(result.FeeSats)
		var preimage *string
		if result.Preimage != "" {
			preimage = &result.Preimage
		}

		results <- bank.PaymentResult{
			ReqID:          job.ReqID,
			UID:            ledger.UserID(job.UID),
			Currency:       job.Currency,
			Amount:         job.Amount,
			ReservedFee:    job.ReservedFee,
			PaymentRequest: job.PaymentRequest,
			PaymentHash:    result.PaymentHash,
			Success:        result.Success,
			ActualFee:      &actualFee,
			Preimage:       preimage,
			Rate:           job.Rate,
		}
	}()
}
