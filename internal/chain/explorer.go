package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/shieldcore/firewall/internal/model"
)

// explorerClient wraps an Etherscan-family "verified source" API. Only the
// normalized VerificationInfo this system needs is exposed; the provider's
// own payload shape is an external collaborator detail (spec §1 non-goals).
type explorerClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newExplorerClient(baseURL, apiKey string) *explorerClient {
	return &explorerClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type explorerSourceResponse struct {
	Status string `json:"status"`
	Result []struct {
		SourceCode  string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	} `json:"result"`
}

func (e *explorerClient) VerificationInfo(ctx context.Context, addr model.Address) (VerificationInfo, error) {
	u := fmt.Sprintf("%s?module=contract&action=getsourcecode&address=%s&apikey=%s",
		e.baseURL, url.QueryEscape(addr.Hex()), url.QueryEscape(e.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return VerificationInfo{}, model.NewShieldError(model.KindInternalInvariant, "explorer.VerificationInfo", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return VerificationInfo{}, model.NewShieldError(model.KindTimeout, "explorer.VerificationInfo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return VerificationInfo{}, model.NewShieldError(model.KindRateLimited, "explorer.VerificationInfo", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return VerificationInfo{}, model.NewShieldError(model.KindUnavailable, "explorer.VerificationInfo", fmt.Errorf("status %d", resp.StatusCode))
	}
	var parsed explorerSourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return VerificationInfo{}, model.NewShieldError(model.KindMalformed, "explorer.VerificationInfo", err)
	}
	if len(parsed.Result) == 0 {
		return VerificationInfo{Verified: false}, nil
	}
	source := parsed.Result[0].SourceCode
	info := VerificationInfo{Verified: source != ""}
	if source != "" {
		info.SourceHash = crypto.Keccak256Hash([]byte(source)).Hex()
	}
	return info, nil
}

// SourceOf returns the raw verified source for bytecode-pattern-independent
// scanning by the Structural analyzer, or "" if unavailable.
func (e *explorerClient) SourceOf(ctx context.Context, addr model.Address) (string, error) {
	info, err := e.fetchSource(ctx, addr)
	if err != nil {
		return "", err
	}
	return info, nil
}

func (e *explorerClient) fetchSource(ctx context.Context, addr model.Address) (string, error) {
	u := fmt.Sprintf("%s?module=contract&action=getsourcecode&address=%s&apikey=%s",
		e.baseURL, url.QueryEscape(addr.Hex()), url.QueryEscape(e.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var parsed explorerSourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Result) == 0 {
		return "", nil
	}
	return parsed.Result[0].SourceCode, nil
}
