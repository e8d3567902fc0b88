package rescue

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldcore/firewall/internal/model"
)

func mustAddress(t *testing.T, chainID int64, hexAddr string) model.Address {
	t.Helper()
	addr, err := model.NewAddress(chainID, hexAddr)
	require.NoError(t, err)
	return addr
}

func TestBuildRevokeEncodesApproveZero(t *testing.T) {
	spender := mustAddress(t, 1, "0x1111111111111111111111111111111111111111")
	token := mustAddress(t, 1, "0x2222222222222222222222222222222222222222")

	tx := buildRevoke(model.ApprovalRecord{Token: token, Spender: spender})

	require.Len(t, tx.Calldata, 4+32+32)
	assert.Equal(t, approveSelector[:], tx.Calldata[:4])
	// the spender is right-aligned in the first word
	assert.Equal(t, make([]byte, 12), tx.Calldata[4:4+12])
	assert.Equal(t, spender.Bytes[:], tx.Calldata[4+12:4+32])
	// the amount word is all zero (revoke)
	assert.Equal(t, make([]byte, 32), tx.Calldata[4+32:])
	assert.Equal(t, token, tx.Token)
	assert.Equal(t, spender, tx.Spender)
}

func TestApproveSelectorMatchesKeccakOfApprove(t *testing.T) {
	// keccak256("approve(address,uint256)")[:4] == 0x095ea7b3, a widely
	// known constant; verified here against its literal hex form rather
	// than recomputing keccak in-test.
	want, err := hex.DecodeString("095ea7b3")
	require.NoError(t, err)
	assert.Equal(t, want, approveSelector[:])
}

func TestExplainNoFindings(t *testing.T) {
	whatItMeans, whatYouCanDo := explain(nil)
	assert.Contains(t, whatItMeans, "No active token approvals")
	assert.Contains(t, whatYouCanDo, "No action is needed")
}

func TestExplainHighRiskDominates(t *testing.T) {
	findings := []model.RescueFinding{
		{Approval: model.ApprovalRecord{SpenderRisk: model.SpenderMedium}},
		{Approval: model.ApprovalRecord{SpenderRisk: model.SpenderHigh}},
	}
	whatItMeans, whatYouCanDo := explain(findings)
	assert.Contains(t, whatItMeans, "high risk")
	assert.Contains(t, whatYouCanDo, "Revoke the high-risk")
}

func TestExplainMediumOnly(t *testing.T) {
	findings := []model.RescueFinding{
		{Approval: model.ApprovalRecord{SpenderRisk: model.SpenderMedium}},
	}
	whatItMeans, whatYouCanDo := explain(findings)
	assert.Contains(t, whatItMeans, "not fully verified")
	assert.Contains(t, whatYouCanDo, "Review the medium-risk")
}

func TestExplainAllLowRisk(t *testing.T) {
	findings := []model.RescueFinding{
		{Approval: model.ApprovalRecord{SpenderRisk: model.SpenderLow}},
	}
	whatItMeans, whatYouCanDo := explain(findings)
	assert.Contains(t, whatItMeans, "no risk signals")
	assert.Contains(t, whatYouCanDo, "No urgent action")
}

func TestNewScannerDefaultsMaxScan(t *testing.T) {
	s := NewScanner(nil, nil, nil, 0)
	assert.Equal(t, 500, s.maxScan)

	s = NewScanner(nil, nil, nil, 50)
	assert.Equal(t, 50, s.maxScan)
}
