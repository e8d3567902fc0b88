// Package reputation implements the ReputationStore: a persistent,
// append-mostly key/value store keyed by (chain_id, address), plus the
// append-only outcomes and community-reports logs.
package reputation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// Store is grounded in pkg/database.DB, the teacher's *sql.DB wrapper with
// query-cache and health monitoring, extended here with a write-ahead log
// table written in the same transaction as Upsert so a crash after Upsert
// returns can never lose the row (spec §4.7 durability target).
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Upsert is linearizable per (chain_id, address): latest score wins. The
// row write and its WAL entry commit in a single transaction.
func (s *Store) Upsert(ctx context.Context, chainID int64, addr model.Address, score model.ShieldScore, ts time.Time) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "reputation.Upsert", err)
	}
	flags, err := json.Marshal(score.CriticalFlags)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "reputation.Upsert", err)
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		payload, err := json.Marshal(struct {
			ChainID   int64      `json:"chain_id"`
			Address   string     `json:"address"`
			Composite float64    `json:"composite"`
			Timestamp time.Time  `json:"timestamp"`
		}{chainID, addr.Hex(), score.Composite, ts})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reputation_wal (table_name, payload, committed) VALUES ($1, $2, false)`,
			"contract_reputation", payload,
		); err != nil {
			return fmt.Errorf("write wal entry: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO contract_reputation (chain_id, address, composite, level, archetype, confidence, breakdown, flags, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (chain_id, address) DO UPDATE SET
				composite = EXCLUDED.composite,
				level = EXCLUDED.level,
				archetype = EXCLUDED.archetype,
				confidence = EXCLUDED.confidence,
				breakdown = EXCLUDED.breakdown,
				flags = EXCLUDED.flags,
				updated_at = EXCLUDED.updated_at
		`, chainID, addr.Hex(), score.Composite, string(score.Level), string(score.Archetype), score.Confidence, breakdown, flags, ts)
		if err != nil {
			return fmt.Errorf("upsert contract_reputation: %w", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE reputation_wal SET committed = true WHERE table_name = $1 AND payload = $2`, "contract_reputation", payload)
		return err
	})
}

// Get returns the latest reputation row for (chain_id, address), or nil if
// none exists. Reads may be slightly stale (bounded by a configurable cache
// TTL); Store itself always reads through to Postgres — the TTL-bounded
// cache lives in the analyzer/handler layer that calls Get, not here.
func (s *Store) Get(ctx context.Context, chainID int64, addr model.Address) (*model.ContractReputation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT composite, level, archetype, confidence, breakdown, flags, updated_at,
		       creator, first_seen_block, verification, block_count, warn_count, allow_count
		FROM contract_reputation WHERE chain_id = $1 AND address = $2
	`, chainID, addr.Hex())

	var (
		composite                            float64
		level, archetype                     string
		confidence                           float64
		breakdownJSON, flagsJSON             []byte
		updatedAt                            time.Time
		creator                              sql.NullString
		firstSeenBlock                       sql.NullInt64
		verification                         sql.NullString
		blockCount, warnCount, allowCount    int
	)
	if err := row.Scan(&composite, &level, &archetype, &confidence, &breakdownJSON, &flagsJSON, &updatedAt,
		&creator, &firstSeenBlock, &verification, &blockCount, &warnCount, &allowCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, model.NewShieldError(model.KindInternalInvariant, "reputation.Get", err)
	}

	var breakdown []model.CategoryScore
	_ = json.Unmarshal(breakdownJSON, &breakdown)
	var flags []model.Flag
	_ = json.Unmarshal(flagsJSON, &flags)

	rep := &model.ContractReputation{
		ChainID: chainID,
		Address: addr,
		LastScore: model.ShieldScore{
			Composite:     composite,
			Breakdown:     breakdown,
			CriticalFlags: flags,
			Level:         model.RiskLevel(level),
			Archetype:     model.Archetype(archetype),
			Confidence:    confidence,
		},
		UpdatedAt:      updatedAt,
		FirstSeenBlock: uint64(firstSeenBlock.Int64),
		Verification:   model.VerificationState(verification.String),
		BlockCount:     blockCount,
		WarnCount:      warnCount,
		AllowCount:     allowCount,
	}
	if creator.Valid {
		if c, err := model.NewAddress(chainID, creator.String); err == nil {
			rep.Creator = &c
		}
	}
	return rep, nil
}

// RecordOutcome appends an OutcomeEvent; OutcomeEvents are totally ordered
// by insertion per store.
func (s *Store) RecordOutcome(ctx context.Context, event model.OutcomeEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (verdict_id, decision, downstream_signal, ts) VALUES ($1, $2, $3, $4)
	`, event.VerdictID, string(event.Decision), string(event.DownstreamSignal), event.Timestamp)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "reputation.RecordOutcome", err)
	}
	return nil
}

// RecordReport appends a CommunityReport.
func (s *Store) RecordReport(ctx context.Context, report model.CommunityReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_reports (reporter, chain_id, address, kind, note, ts) VALUES ($1, $2, $3, $4, $5, $6)
	`, report.Reporter, report.Target.ChainID, report.Target.Hex(), string(report.Kind), report.Note, report.Timestamp)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "reputation.RecordReport", err)
	}
	return nil
}

// TopFlagged is a read model over latest scores, optionally scoped to one
// chain, ordered by composite descending.
func (s *Store) TopFlagged(ctx context.Context, chainID *int64, limit int) ([]model.ContractReputation, error) {
	var rows *sql.Rows
	var err error
	if chainID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT chain_id, address, composite, level, archetype, confidence, updated_at
			FROM contract_reputation WHERE chain_id = $1 ORDER BY composite DESC LIMIT $2
		`, *chainID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT chain_id, address, composite, level, archetype, confidence, updated_at
			FROM contract_reputation ORDER BY composite DESC LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, model.NewShieldError(model.KindInternalInvariant, "reputation.TopFlagged", err)
	}
	defer rows.Close()

	var out []model.ContractReputation
	for rows.Next() {
		var (
			cid                      int64
			addrHex, level, archetype string
			composite, confidence     float64
			updatedAt                 time.Time
		)
		if err := rows.Scan(&cid, &addrHex, &composite, &level, &archetype, &confidence, &updatedAt); err != nil {
			return nil, model.NewShieldError(model.KindInternalInvariant, "reputation.TopFlagged", err)
		}
		addr, err := model.NewAddress(cid, addrHex)
		if err != nil {
			continue
		}
		out = append(out, model.ContractReputation{
			ChainID: cid,
			Address: addr,
			LastScore: model.ShieldScore{
				Composite:  composite,
				Level:      model.RiskLevel(level),
				Archetype:  model.Archetype(archetype),
				Confidence: confidence,
			},
			UpdatedAt: updatedAt,
		})
	}
	return out, rows.Err()
}

// RecentAlerts returns mempool alerts since ts, optionally scoped to one
// chain, newest first, capped at limit. Backs GET /api/threats/feed
// alongside TopFlagged.
func (s *Store) RecentAlerts(ctx context.Context, chainID *int64, since time.Time, limit int) ([]model.MempoolAlert, error) {
	var rows *sql.Rows
	var err error
	if chainID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, victim_tx_hash, attacker, chain_id, detected_at
			FROM mempool_alerts WHERE chain_id = $1 AND detected_at >= $2
			ORDER BY detected_at DESC LIMIT $3
		`, *chainID, since, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, victim_tx_hash, attacker, chain_id, detected_at
			FROM mempool_alerts WHERE detected_at >= $1
			ORDER BY detected_at DESC LIMIT $2
		`, since, limit)
	}
	if err != nil {
		return nil, model.NewShieldError(model.KindInternalInvariant, "reputation.RecentAlerts", err)
	}
	defer rows.Close()

	var out []model.MempoolAlert
	for rows.Next() {
		var (
			id, kind, txHash, attackerHex string
			cid                           int64
			detectedAt                    time.Time
		)
		if err := rows.Scan(&id, &kind, &txHash, &attackerHex, &cid, &detectedAt); err != nil {
			return nil, model.NewShieldError(model.KindInternalInvariant, "reputation.RecentAlerts", err)
		}
		attacker, err := model.NewAddress(cid, attackerHex)
		if err != nil {
			continue
		}
		out = append(out, model.MempoolAlert{
			ID:           id,
			Kind:         model.AlertKind(kind),
			VictimTxHash: txHash,
			Attacker:     attacker,
			ChainID:      cid,
			DetectedAt:   detectedAt,
		})
	}
	return out, rows.Err()
}

// RecordAlert appends a MempoolAlert, idempotent on ID so a retried
// detection (e.g. the same suspicious approval re-scanned) never double
// counts in the threats feed.
func (s *Store) RecordAlert(ctx context.Context, alert model.MempoolAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mempool_alerts (id, kind, victim_tx_hash, attacker, chain_id, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, alert.ID, string(alert.Kind), alert.VictimTxHash, alert.Attacker.Hex(), alert.ChainID, alert.DetectedAt)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "reputation.RecordAlert", err)
	}
	return nil
}
