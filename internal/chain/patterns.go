package chain

import (
	"regexp"
	"strings"
)

// DangerousPattern is one known-dangerous bytecode or source signature the
// Structural analyzer sums deltas from. The bytecode patterns are grounded
// in the opcode-sequence checks the teacher's contract_analysis.go performs
// (selfdestruct 0xff, delegatecall 0xf4, EIP-1167 minimal proxy); the
// source patterns are grounded in VIGILUM's regex pattern
// catalog (reentrancy/access-control/upgradability categories).
type DangerousPattern struct {
	Name        string
	Category    string
	BytecodeRE  *regexp.Regexp // matched against lowercase hex bytecode
	SourceRE    *regexp.Regexp // matched against verified Solidity source, optional
}

var dangerousPatterns = []DangerousPattern{
	{
		Name:       "selfdestruct",
		Category:   "SELFDESTRUCT_CAPABLE",
		BytecodeRE: regexp.MustCompile(`ff(60|61|80|90)`), // SELFDESTRUCT opcode followed by a push/dup/swap
	},
	{
		Name:       "delegatecall-to-arg",
		Category:   "UPGRADEABLE_PROXY",
		BytecodeRE: regexp.MustCompile(`36(3d)?3d373d3d3d363d73`), // EIP-1167 minimal proxy preamble
	},
	{
		Name:       "delegatecall-generic",
		Category:   "UPGRADEABLE_PROXY",
		BytecodeRE: regexp.MustCompile(`f4`),
	},
	{
		Name:       "onlyowner-blacklist",
		Category:   "BLACKLIST_FN",
		SourceRE:   regexp.MustCompile(`(?i)mapping\s*\(\s*address\s*=>\s*bool\s*\)\s*(public|private)?\s*(is)?blacklist`),
	},
	{
		Name:       "open-mint",
		Category:   "MINT_OPEN",
		// public/external mint whose body opens right after the visibility
		// keyword, i.e. with no modifier such as onlyOwner in between.
		SourceRE:   regexp.MustCompile(`(?i)function\s+mint\s*\([^)]*\)\s*(public|external)\s*\{`),
	},
	{
		Name:       "settable-fee",
		Category:   "OWNER_ACTIVE",
		SourceRE:   regexp.MustCompile(`(?i)function\s+set(Fee|Tax)\s*\(`),
	},
	{
		Name:       "pause-open",
		Category:   "OWNER_ACTIVE",
		SourceRE:   regexp.MustCompile(`(?i)function\s+(pause|setPaused)\s*\(`),
	},
	{
		Name:       "max-tx-open",
		Category:   "OWNER_ACTIVE",
		SourceRE:   regexp.MustCompile(`(?i)function\s+setMax(Tx|TxAmount|Transaction)\s*\(`),
	},
}

// KnownMintSelectors are 4-byte function selectors for hidden-mint style
// functions, grounded in the teacher's checkHiddenMintFunctions table.
var KnownMintSelectors = map[string]string{
	"40c10f19": "mint(address,uint256)",
	"a0712d68": "mint(uint256)",
	"1249c58b": "mint()",
}

// MatchDangerousBytecode returns the DangerousPatterns whose BytecodeRE
// matches hexCode (without the 0x prefix, lowercase).
func MatchDangerousBytecode(hexCode string) []DangerousPattern {
	hexCode = strings.ToLower(strings.TrimPrefix(hexCode, "0x"))
	var hits []DangerousPattern
	for _, p := range dangerousPatterns {
		if p.BytecodeRE != nil && p.BytecodeRE.MatchString(hexCode) {
			hits = append(hits, p)
		}
	}
	return hits
}

// MatchSourcePatterns returns the DangerousPatterns whose SourceRE matches verified Solidity source.
func MatchSourcePatterns(source string) []DangerousPattern {
	var hits []DangerousPattern
	for _, p := range dangerousPatterns {
		if p.SourceRE != nil && p.SourceRE.MatchString(source) {
			hits = append(hits, p)
		}
	}
	return hits
}

// KnownSelectors maps common ERC-20/approval selectors to names, used by
// DecodeCall and the IntentMismatch analyzer's disguise check.
var KnownSelectors = map[string]string{
	"095ea7b3": "approve(address,uint256)",
	"a9059cbb": "transfer(address,uint256)",
	"23b872dd": "transferFrom(address,address,uint256)",
	"d505accf": "permit(address,address,uint256,uint256,uint8,bytes32,bytes32)",
}
