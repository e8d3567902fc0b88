package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchDangerousBytecodeSelfdestruct(t *testing.T) {
	hits := MatchDangerousBytecode("0xff6001")
	assertHasCategory(t, hits, "SELFDESTRUCT_CAPABLE")
}

func TestMatchDangerousBytecodeMinimalProxyPreamble(t *testing.T) {
	hits := MatchDangerousBytecode("363d3d373d3d3d363d73deadbeef")
	assertHasCategory(t, hits, "UPGRADEABLE_PROXY")
}

func TestMatchDangerousBytecodeNoMatch(t *testing.T) {
	hits := MatchDangerousBytecode("6001600201")
	assert.Empty(t, hits)
}

func TestMatchDangerousBytecodeIsCaseInsensitiveAndStripsPrefix(t *testing.T) {
	lower := MatchDangerousBytecode("0xFF6001")
	upper := MatchDangerousBytecode("ff6001")
	assert.Equal(t, len(lower), len(upper))
	assert.NotEmpty(t, lower)
}

func TestMatchSourcePatternsBlacklist(t *testing.T) {
	src := `mapping(address => bool) public isBlacklisted;`
	hits := MatchSourcePatterns(src)
	assertHasCategory(t, hits, "BLACKLIST_FN")
}

func TestMatchSourcePatternsOpenMint(t *testing.T) {
	src := `function mint(address to, uint256 amount) public { _mint(to, amount); }`
	hits := MatchSourcePatterns(src)
	assertHasCategory(t, hits, "MINT_OPEN")
}

func TestMatchSourcePatternsNoMatch(t *testing.T) {
	src := `function totalSupply() public view returns (uint256) { return _totalSupply; }`
	hits := MatchSourcePatterns(src)
	assert.Empty(t, hits)
}

func TestKnownSelectorsContainsApprove(t *testing.T) {
	assert.Equal(t, "approve(address,uint256)", KnownSelectors["095ea7b3"])
}

func TestKnownMintSelectorsContainsMint(t *testing.T) {
	assert.Equal(t, "mint(address,uint256)", KnownMintSelectors["40c10f19"])
}

func assertHasCategory(t *testing.T, hits []DangerousPattern, category string) {
	t.Helper()
	for _, h := range hits {
		if h.Category == category {
			return
		}
	}
	t.Fatalf("expected a hit with category %q, got %+v", category, hits)
}
