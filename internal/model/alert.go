package model

import "time"

// MempoolAlert is a detected, address-scoped mempool threat surfaced by the
// threats feed endpoint.
type MempoolAlert struct {
	ID          string
	Kind        AlertKind
	VictimTxHash string
	Attacker    Address
	ChainID     int64
	DetectedAt  time.Time
}
