// Package ledger provides gateway implementations for the external system
// of record. The demo gateway serves fixture data for local runs; the cached
// gateway decorates any gateway with a Redis snapshot cache.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/erp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DemoGateway serves ledger snapshots from a JSON fixture file. It simulates
// the failure modes of a real ledger connection: configurable latency on
// every call and a transient fault injected every Nth fetch or posting, so
// the retry path can be exercised without a real backend.
type DemoGateway struct {
	mu        sync.Mutex
	snapshots map[string]*procurement.LedgerSnapshot
	locks     map[string]bool
	calls     int
	failEvery int
	latency   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDemoGateway creates a DemoGateway from the ledger configuration.
// A missing or empty fixture path falls back to built-in demo snapshots.
func NewDemoGateway(cfg config.LedgerConfig, logger *zap.Logger) (*DemoGateway, error) {
	snapshots, err := loadFixture(cfg.FixturePath)
	if err != nil {
		return nil, err
	}
	return &DemoGateway{
		snapshots: snapshots,
		locks:     make(map[string]bool),
		failEvery: cfg.FailEvery,
		latency:   cfg.Latency,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// FetchPO retrieves the fixture snapshot for a purchase order
func (g *DemoGateway) FetchPO(ctx context.Context, poNumber string) (*procurement.LedgerSnapshot, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.maybeInjectFault("fetch_po"); err != nil {
		return nil, err
	}

	snapshot, ok := g.snapshots[poNumber]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneSnapshot(snapshot), nil
}

// LockDocument claims the document, failing if another caller holds it
func (g *DemoGateway) LockDocument(ctx context.Context, docNumber string) error {
	if err := g.simulateLatency(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.locks[docNumber] {
		return procurement.NewTransientError("lock_document",
			fmt.Errorf("document %s is locked by another session", docNumber))
	}
	g.locks[docNumber] = true
	return nil
}

// UnlockDocument releases a previously claimed document
func (g *DemoGateway) UnlockDocument(ctx context.Context, docNumber string) error {
	if err := g.simulateLatency(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.locks, docNumber)
	return nil
}

// PostInvoice assigns an invoice number for an approved order
func (g *DemoGateway) PostInvoice(ctx context.Context, po *procurement.PurchaseOrder) (string, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.maybeInjectFault("post_invoice"); err != nil {
		return "", err
	}

	if _, ok := g.snapshots[po.PONumber]; !ok {
		return "", procurement.NewPermanentError("post_invoice",
			fmt.Errorf("purchase order %s not known to the ledger", po.PONumber))
	}

	invoiceNumber := fmt.Sprintf("INV-%s-%d", po.PONumber, g.now().Unix())
	g.logger.Info("Demo ledger posted invoice",
		zap.String("po_number", po.PONumber),
		zap.String("invoice_number", invoiceNumber))
	return invoiceNumber, nil
}

// IsLocked reports whether the demo ledger currently holds a lock on the document
func (g *DemoGateway) IsLocked(docNumber string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locks[docNumber]
}

func (g *DemoGateway) simulateLatency(ctx context.Context) error {
	if g.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// maybeInjectFault fails every Nth retriable call; callers hold g.mu
func (g *DemoGateway) maybeInjectFault(op string) error {
	g.calls++
	if g.failEvery > 0 && g.calls%g.failEvery == 0 {
		g.logger.Debug("Demo ledger injected transient fault",
			zap.String("op", op), zap.Int("call", g.calls))
		return procurement.NewTransientError(op, fmt.Errorf("simulated connection reset"))
	}
	return nil
}

type fixtureFile struct {
	POs []procurement.LedgerSnapshot `json:"pos"`
}

func loadFixture(path string) (map[string]*procurement.LedgerSnapshot, error) {
	if path == "" {
		return defaultSnapshots(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSnapshots(), nil
		}
		return nil, fmt.Errorf("failed to read ledger fixture %s: %w", path, err)
	}

	var fixture fixtureFile
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("invalid ledger fixture %s: %w", path, err)
	}

	snapshots := make(map[string]*procurement.LedgerSnapshot, len(fixture.POs))
	for i := range fixture.POs {
		snapshots[fixture.POs[i].PONumber] = &fixture.POs[i]
	}
	return snapshots, nil
}

func cloneSnapshot(s *procurement.LedgerSnapshot) *procurement.LedgerSnapshot {
	out := *s
	out.Items = make([]procurement.SnapshotItem, len(s.Items))
	copy(out.Items, s.Items)
	return &out
}
