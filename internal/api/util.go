package api

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shieldcore/firewall/internal/middleware"
)

// requestID returns the caller's API key id if authenticated, falling back
// to a fresh uuid so every AnalysisContext still gets a stable identifier
// for logs and tracing.
func requestID(c *gin.Context) string {
	if key, ok := middleware.KeyFromContext(c); ok {
		return key.ID + ":" + uuid.NewString()
	}
	return uuid.NewString()
}

func hexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// hexOrDecimalBigInt parses value as 0x-hex if prefixed, else as a decimal
// string (wallets commonly send plain wei amounts over HTTP APIs).
func hexOrDecimalBigInt(value string) *big.Int {
	if value == "" {
		return big.NewInt(0)
	}
	if strings.HasPrefix(value, "0x") {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(value, "0x"), 16)
		if !ok {
			return big.NewInt(0)
		}
		return v
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
