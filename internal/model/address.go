// Package model holds the plain data types shared across the firewall:
// addresses, analysis context, analyzer results, scores, verdicts, and the
// persisted reputation/deployer/outcome records.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Address is a chain-scoped EVM address. Equality is (chainID, bytes);
// the hex form is always canonical lowercase.
type Address struct {
	ChainID int64
	Bytes   [20]byte
}

// NewAddress parses a 0x-prefixed 20-byte hex string scoped to chainID.
func NewAddress(chainID int64, hex string) (Address, error) {
	hex = strings.TrimPrefix(strings.ToLower(hex), "0x")
	if len(hex) != 40 {
		return Address{}, fmt.Errorf("address must be 20 bytes, got %d hex chars", len(hex))
	}
	var out [20]byte
	for i := 0; i < 20; i++ {
		b, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Address{}, fmt.Errorf("invalid hex address %q: %w", hex, err)
		}
		out[i] = byte(b)
	}
	return Address{ChainID: chainID, Bytes: out}, nil
}

// Hex returns the canonical lowercase 0x-prefixed form, no chain id.
func (a Address) Hex() string {
	return "0x" + hexEncode(a.Bytes[:])
}

// String renders the map/cache key form "chainID:0xhex".
func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.ChainID, a.Hex())
}

// IsZero reports whether the address is the unset value (not the same as
// the on-chain zero address 0x000...0, which is a valid Address value).
func (a Address) IsZero() bool {
	return a.ChainID == 0 && a.Bytes == [20]byte{}
}

// Equal implements the spec's (chain_id, bytes) equality rule.
func (a Address) Equal(other Address) bool {
	return a.ChainID == other.ChainID && a.Bytes == other.Bytes
}

type addressJSON struct {
	ChainID int64  `json:"chain_id"`
	Address string `json:"address"`
}

// MarshalJSON implements json.Marshaler so Address round-trips through the
// API schema (testable property 9).
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{ChainID: a.ChainID, Address: a.Hex()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var raw addressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewAddress(raw.ChainID, raw.Address)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0x0f]
	}
	return string(out)
}
