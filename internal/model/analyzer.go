package model

// Flag is an enumerated, machine-readable critical flag. Downstream rules
// (escalation floors, archetype derivation) branch on Flag values only;
// free-form strings never enter the composite path.
type Flag string

const (
	FlagUnverified          Flag = "UNVERIFIED"
	FlagNewContract         Flag = "NEW_CONTRACT"
	FlagSelfdestructCapable Flag = "SELFDESTRUCT_CAPABLE"
	FlagUpgradeableProxy    Flag = "UPGRADEABLE_PROXY"
	FlagMintOpen            Flag = "MINT_OPEN"
	FlagBlacklistFn         Flag = "BLACKLIST_FN"
	FlagOwnerActive         Flag = "OWNER_ACTIVE"
	FlagContractDestroyed   Flag = "CONTRACT_DESTROYED"
	FlagContractAged        Flag = "CONTRACT_AGED"

	FlagNoLiquidity Flag = "NO_LIQUIDITY"

	FlagHoneypotConfirmed Flag = "HONEYPOT_CONFIRMED"

	FlagUnlimitedApproval Flag = "UNLIMITED_APPROVAL"
	FlagDisguisedSelector Flag = "DISGUISED_SELECTOR"

	FlagPermitUnlimited Flag = "PERMIT_UNLIMITED"
	FlagZeroPriceOrder  Flag = "ZERO_PRICE_ORDER"
)

// Tag identifies an analyzer category.
type Tag string

const (
	TagStructural       Tag = "structural"
	TagMarket           Tag = "market"
	TagBehavioral       Tag = "behavioral"
	TagHoneypot         Tag = "honeypot"
	TagIntentMismatch   Tag = "intent_mismatch"
	TagSignaturePermit  Tag = "signature_permit"
)

// Finding is a human-readable, non-critical informational note. Findings
// never drive escalation or policy decisions; they exist for explanation.
type Finding struct {
	Message string
	Detail  string
}

// AnalyzerResult is the output of a single analyzer's Run. Score and
// Confidence are always finite; Flags form a set (no duplicates).
type AnalyzerResult struct {
	Tag        Tag
	Score      float64 // [0,100]
	Flags      []Flag
	Findings   []Finding
	Confidence float64 // [0,1]
	Partial    bool    // true if any Required dependency failed
	Payload    any     // optional structured detail, e.g. honeypot taxes
}

// HasFlag reports whether r carries the given flag.
func (r AnalyzerResult) HasFlag(f Flag) bool {
	for _, flag := range r.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// AddFlag appends f to r.Flags if not already present, preserving the
// set invariant.
func (r *AnalyzerResult) AddFlag(f Flag) {
	if !r.HasFlag(f) {
		r.Flags = append(r.Flags, f)
	}
}
