package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
)

type fakeAnalyzer struct {
	tag    model.Tag
	weight float64
}

func (f fakeAnalyzer) Tag() model.Tag     { return f.tag }
func (f fakeAnalyzer) Weight() float64    { return f.weight }
func (f fakeAnalyzer) Required() []string { return nil }
func (f fakeAnalyzer) Optional() []string { return nil }
func (f fakeAnalyzer) Run(context.Context, *model.AnalysisContext) model.AnalyzerResult {
	return model.AnalyzerResult{}
}

func registryWithStructural() *analysis.Registry {
	return analysis.NewRegistry(
		fakeAnalyzer{tag: model.TagStructural, weight: 0.50},
		fakeAnalyzer{tag: model.TagMarket, weight: 0.50},
	)
}

type fakeUploader struct {
	called bool
	url    string
	err    error
}

func (u *fakeUploader) Upload(ctx context.Context, report model.ForensicReport) (string, error) {
	u.called = true
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func scoreWith(composite float64, partial map[model.Tag]bool) model.ShieldScore {
	breakdown := []model.CategoryScore{
		{Tag: model.TagStructural, Partial: partial[model.TagStructural]},
		{Tag: model.TagMarket, Partial: partial[model.TagMarket]},
	}
	return model.ShieldScore{Composite: composite, Breakdown: breakdown, Level: model.RiskLow}
}

func TestDecideActionThresholds(t *testing.T) {
	reg := registryWithStructural()
	cases := []struct {
		composite float64
		want      model.VerdictAction
	}{
		{0, model.ActionAllow},
		{30, model.ActionAllow},
		{31, model.ActionWarn},
		{70, model.ActionWarn},
		{71, model.ActionBlock},
		{100, model.ActionBlock},
	}
	for _, tc := range cases {
		e := NewEngine(config.PolicyBalanced, 101, nil)
		verdict := e.Decide(context.Background(), reg, scoreWith(tc.composite, nil), false)
		assert.Equalf(t, tc.want, verdict.Action, "composite=%v", tc.composite)
	}
}

func TestDecideVerdictIDOnlySetForNonAllow(t *testing.T) {
	reg := registryWithStructural()
	e := NewEngine(config.PolicyBalanced, 101, nil)

	allow := e.Decide(context.Background(), reg, scoreWith(10, nil), false)
	assert.Empty(t, allow.VerdictID)

	warn := e.Decide(context.Background(), reg, scoreWith(50, nil), false)
	assert.NotEmpty(t, warn.VerdictID)
}

func TestDecideStrictModeEscalatesOnPartialHighWeightSource(t *testing.T) {
	reg := registryWithStructural()
	e := NewEngine(config.PolicyStrict, 101, nil)

	// Structural (weight 0.50, normalized) reported partial, composite is
	// low -> STRICT escalates ALLOW to WARN.
	verdict := e.Decide(context.Background(), reg, scoreWith(10, map[model.Tag]bool{model.TagStructural: true}), false)
	assert.Equal(t, model.ActionWarn, verdict.Action)
}

func TestDecideStrictModeBlocksWhenUnverifiedAndPartial(t *testing.T) {
	reg := registryWithStructural()
	e := NewEngine(config.PolicyStrict, 101, nil)

	verdict := e.Decide(context.Background(), reg, scoreWith(10, map[model.Tag]bool{model.TagStructural: true}), true)
	assert.Equal(t, model.ActionBlock, verdict.Action)
}

func TestDecideBalancedModeIgnoresPartialSources(t *testing.T) {
	reg := registryWithStructural()
	e := NewEngine(config.PolicyBalanced, 101, nil)

	verdict := e.Decide(context.Background(), reg, scoreWith(10, map[model.Tag]bool{model.TagStructural: true}), true)
	assert.Equal(t, model.ActionAllow, verdict.Action)
}

func TestDecideForensicUploadTriggeredAboveThreshold(t *testing.T) {
	reg := registryWithStructural()
	uploader := &fakeUploader{url: "https://forensics.example/report/1"}
	e := NewEngine(config.PolicyBalanced, 71, uploader)

	verdict := e.Decide(context.Background(), reg, scoreWith(80, nil), false)

	require.True(t, uploader.called)
	assert.Equal(t, uploader.url, verdict.ForensicURL)
}

func TestDecideForensicUploadSkippedBelowThreshold(t *testing.T) {
	reg := registryWithStructural()
	uploader := &fakeUploader{url: "https://forensics.example/report/1"}
	e := NewEngine(config.PolicyBalanced, 71, uploader)

	verdict := e.Decide(context.Background(), reg, scoreWith(50, nil), false)

	assert.False(t, uploader.called)
	assert.Empty(t, verdict.ForensicURL)
}

func TestDecideForensicUploadFailureLeavesURLEmpty(t *testing.T) {
	reg := registryWithStructural()
	uploader := &fakeUploader{err: errors.New("storage unavailable")}
	e := NewEngine(config.PolicyBalanced, 71, uploader)

	verdict := e.Decide(context.Background(), reg, scoreWith(90, nil), false)

	require.True(t, uploader.called)
	assert.Empty(t, verdict.ForensicURL)
}

func TestDecideNilUploaderNeverTriggersUpload(t *testing.T) {
	reg := registryWithStructural()
	e := NewEngine(config.PolicyBalanced, 1, nil)

	verdict := e.Decide(context.Background(), reg, scoreWith(90, nil), false)
	assert.Empty(t, verdict.ForensicURL)
}

func TestExplainIncludesFlagReasons(t *testing.T) {
	score := model.ShieldScore{
		Composite:     85,
		Level:         model.RiskHigh,
		CriticalFlags: []model.Flag{model.FlagHoneypotConfirmed},
	}
	msg := explain(score, model.ActionBlock)
	assert.Contains(t, msg, "cannot be sold")
	assert.Contains(t, msg, "BLOCK")
}

func TestExplainNoCriticalFlags(t *testing.T) {
	score := model.ShieldScore{Composite: 5, Level: model.RiskLow}
	msg := explain(score, model.ActionAllow)
	assert.Contains(t, msg, "no critical flags raised")
}
