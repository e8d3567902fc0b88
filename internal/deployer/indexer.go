// Package deployer implements the DeployerIndexer and CampaignCorrelator:
// background workers that build a cross-chain entity graph keyed on
// deployer and funder addresses, used by the Behavioral analyzer and
// surfaced via the Campaign query.
package deployer

import (
	"context"
	"time"

	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
	"github.com/shieldcore/firewall/pkg/observability"
)

// BackfillItem is one unit of work for the Indexer: resolve and persist the
// creator/funder edges for one (chain_id, contract_address).
type BackfillItem struct {
	ChainID int64
	Address model.Address
}

// Indexer consumes a buffered queue of BackfillItem, grounded in the
// teacher's go func() background-worker idiom (e.g.
// simulateTransactionConfirmation launched via go in internal/web3/service.go).
type Indexer struct {
	db        *database.DB
	adapters  map[int64]chain.Adapter
	logger    *observability.Logger
	queue     chan BackfillItem
	exchanges map[string]bool // lowercase hex address -> is a known exchange/bridge
}

func NewIndexer(db *database.DB, adapters map[int64]chain.Adapter, logger *observability.Logger, exchangeAllowlist []string, queueSize int) *Indexer {
	exchanges := make(map[string]bool, len(exchangeAllowlist))
	for _, addr := range exchangeAllowlist {
		exchanges[addr] = true
	}
	return &Indexer{
		db:        db,
		adapters:  adapters,
		logger:    logger,
		queue:     make(chan BackfillItem, queueSize),
		exchanges: exchanges,
	}
}

// Enqueue adds a contract to the backfill queue. Non-blocking up to the
// queue's buffer; callers should treat a full queue as back-pressure.
func (idx *Indexer) Enqueue(item BackfillItem) bool {
	select {
	case idx.queue <- item:
		return true
	default:
		return false
	}
}

// Start runs the consumer loop until ctx is cancelled, the teacher's
// pattern for a long-lived background worker launched once from main().
func (idx *Indexer) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-idx.queue:
			if err := idx.process(ctx, item); err != nil {
				idx.logger.Warn(ctx, "deployer indexer: backfill item failed", map[string]interface{}{
					"chain_id": item.ChainID,
					"address":  item.Address.Hex(),
					"error":    err.Error(),
				})
			}
		}
	}
}

func (idx *Indexer) process(ctx context.Context, item BackfillItem) error {
	adapter, ok := idx.adapters[item.ChainID]
	if !ok {
		return nil
	}

	info, err := adapter.VerificationInfo(ctx, item.Address)
	if err != nil || info.Creator == nil {
		return err
	}
	creator := *info.Creator

	if _, err := idx.db.ExecContext(ctx, `
		INSERT INTO deployer_contracts (chain_id, deployer, contract, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chain_id, contract) DO NOTHING
	`, item.ChainID, creator.Hex(), item.Address.Hex()); err != nil {
		return err
	}

	if idx.exchanges[creator.Hex()] {
		return nil
	}

	funder, firstFundedAt, err := idx.firstFunder(ctx, adapter, creator)
	if err != nil || funder == nil {
		return err
	}
	if idx.exchanges[funder.Hex()] {
		return nil
	}

	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO funder_edges (chain_id, funder, deployer, first_funded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain_id, funder, deployer) DO NOTHING
	`, item.ChainID, funder.Hex(), creator.Hex(), firstFundedAt)
	return err
}

// firstFunder examines creator's first incoming value transfer from a
// non-exchange address. EVMAdapter has no generic "transaction history by
// address" RPC method (most providers require an explorer "txlist" call),
// so this narrows to the explorer-backed adapter via an optional interface;
// absence degrades to "no funder found" rather than failing the backfill.
func (idx *Indexer) firstFunder(ctx context.Context, adapter chain.Adapter, creator model.Address) (*model.Address, time.Time, error) {
	type funderLookup interface {
		FirstFunder(ctx context.Context, addr model.Address) (model.Address, time.Time, error)
	}
	if lookup, ok := adapter.(funderLookup); ok {
		funder, ts, err := lookup.FirstFunder(ctx, creator)
		if err != nil {
			return nil, time.Time{}, err
		}
		return &funder, ts, nil
	}
	return nil, time.Time{}, nil
}
