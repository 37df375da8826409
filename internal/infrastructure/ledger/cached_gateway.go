package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const snapshotKeyPrefix = "ledger:po:"

// CachedGateway decorates a LedgerGateway with a Redis cache for fetched
// snapshots. Cache failures are logged and never surfaced: a broken cache
// degrades to uncached fetches, it does not fail processing runs.
type CachedGateway struct {
	inner  procurement.LedgerGateway
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGateway wraps inner with a Redis snapshot cache
func NewCachedGateway(inner procurement.LedgerGateway, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGateway {
	return &CachedGateway{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// FetchPO returns the cached snapshot when present, delegating on miss
func (g *CachedGateway) FetchPO(ctx context.Context, poNumber string) (*procurement.LedgerSnapshot, error) {
	key := snapshotKeyPrefix + poNumber

	cached, err := g.client.Get(ctx, key).Bytes()
	if err == nil {
		var snapshot procurement.LedgerSnapshot
		if err := json.Unmarshal(cached, &snapshot); err == nil {
			return &snapshot, nil
		}
		g.logger.Warn("Discarding undecodable cached ledger snapshot",
			zap.String("po_number", poNumber))
	} else if !errors.Is(err, redis.Nil) {
		g.logger.Warn("Ledger snapshot cache read failed",
			zap.String("po_number", poNumber), zap.Error(err))
	}

	snapshot, err := g.inner.FetchPO(ctx, poNumber)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := g.client.Set(ctx, key, data, g.ttl).Err(); err != nil {
			g.logger.Warn("Ledger snapshot cache write failed",
				zap.String("po_number", poNumber), zap.Error(err))
		}
	}
	return snapshot, nil
}

// LockDocument delegates to the wrapped gateway
func (g *CachedGateway) LockDocument(ctx context.Context, docNumber string) error {
	return g.inner.LockDocument(ctx, docNumber)
}

// UnlockDocument delegates to the wrapped gateway
func (g *CachedGateway) UnlockDocument(ctx context.Context, docNumber string) error {
	return g.inner.UnlockDocument(ctx, docNumber)
}

// PostInvoice delegates and drops the stale cached snapshot
func (g *CachedGateway) PostInvoice(ctx context.Context, po *procurement.PurchaseOrder) (string, error) {
	invoiceNumber, err := g.inner.PostInvoice(ctx, po)
	if err != nil {
		return "", err
	}
	if err := g.client.Del(ctx, snapshotKeyPrefix+po.PONumber).Err(); err != nil {
		g.logger.Warn("Ledger snapshot cache invalidation failed",
			zap.String("po_number", po.PONumber), zap.Error(err))
	}
	return invoiceNumber, nil
}
