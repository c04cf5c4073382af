package database

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"bankengine/internal/bank"
	"bankengine/pkg/cache"
	"bankengine/pkg/logger"
)

const lnurlTTL = 10 * time.Minute

// LnurlRepository implements bank.LnurlStore on top of the shared
// Redis cache: a withdrawal template only needs to survive the short
// window between a wallet's Create and its matching Get/Pay. TakeOnce
// deletes a template as it reads it; TTL expiry removes templates that
// are never taken.
type LnurlRepository struct{}

// NewLnurlRepository returns a ready-to-use LNURL template store.
func NewLnurlRepository() *LnurlRepository {
	return &LnurlRepository{}
}

func lnurlKey(reqID string) string {
	return "lnurl:withdraw:" + reqID
}

// Put implements bank.LnurlStore.
func (r *LnurlRepository) Put(reqID string, tmpl bank.LnurlTemplate) {
	data, err := json.Marshal(tmpl)
	if err != nil {
		logger.Error("lnurl: failed to marshal template", zap.Error(err))
		return
	}
	if err := cache.Set(context.Background(), lnurlKey(reqID), data, lnurlTTL); err != nil {
		logger.Error("lnurl: failed to store template", zap.String("req_id", reqID), zap.Error(err))
	}
}

// TakeOnce implements bank.LnurlStore: a single GETDEL makes the fetch
// and removal atomic, so two concurrent Gets for the same reqID can
// never both succeed.
func (r *LnurlRepository) TakeOnce(reqID string) (bank.LnurlTemplate, bool) {
	ctx := context.Background()
	val, err := cache.Client.GetDel(ctx, lnurlKey(reqID)).Result()
	if err != nil {
		return bank.LnurlTemplate{}, false
	}

	var tmpl bank.LnurlTemplate
	if err := json.Unmarshal([]byte(val), &tmpl); err != nil {
		logger.Error("lnurl: failed to unmarshal template", zap.Error(err))
		return bank.LnurlTemplate{}, false
	}
	return tmpl, true
}
