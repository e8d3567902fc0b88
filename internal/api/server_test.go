package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/container"
	"github.com/shieldcore/firewall/internal/model"
)

func TestKindToHTTP(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{model.NewShieldError(model.KindValidationError, "op", nil), http.StatusBadRequest, "INVALID_ADDRESS"},
		{model.NewShieldError(model.KindMalformed, "op", nil), http.StatusBadRequest, "INVALID_ADDRESS"},
		{model.NewShieldError(model.KindDeadlineExceeded, "op", nil), http.StatusGatewayTimeout, "DEADLINE_EXCEEDED"},
		{model.NewShieldError(model.KindTimeout, "op", nil), http.StatusGatewayTimeout, "DEADLINE_EXCEEDED"},
		{model.NewShieldError(model.KindUnavailable, "op", nil), http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{model.NewShieldError(model.KindTransientUpstream, "op", nil), http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{model.NewShieldError(model.KindAuthError, "op", nil), http.StatusUnauthorized, "UNAUTHENTICATED"},
		{model.NewShieldError(model.KindInternalInvariant, "op", nil), http.StatusInternalServerError, "INTERNAL"},
		{errors.New("plain error"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		status, code := kindToHTTP(tc.err)
		assert.Equal(t, tc.wantStatus, status)
		assert.Equal(t, tc.wantCode, code)
	}
}

func TestChainSupported(t *testing.T) {
	s := &Server{c: &container.Container{
		Adapters:   map[int64]chain.Adapter{1: nil},
		Registries: map[int64]*analysis.Registry{1: analysis.NewRegistry()},
	}}

	assert.True(t, s.chainSupported(1))
	assert.False(t, s.chainSupported(2))
}

func TestChainSupportedRequiresBothAdapterAndRegistry(t *testing.T) {
	s := &Server{c: &container.Container{
		Adapters:   map[int64]chain.Adapter{1: nil},
		Registries: map[int64]*analysis.Registry{},
	}}
	assert.False(t, s.chainSupported(1))
}

func TestScoreHasFlag(t *testing.T) {
	score := model.ShieldScore{CriticalFlags: []model.Flag{model.FlagUnverified}}
	assert.True(t, scoreHasFlag(score, model.FlagUnverified))
	assert.False(t, scoreHasFlag(score, model.FlagHoneypotConfirmed))
}
