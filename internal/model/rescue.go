package model

// RevokeTx is a pre-built, unsigned approve(spender, 0) transaction
// template the wallet can sign to revoke one approval.
type RevokeTx struct {
	Token    Address
	Spender  Address
	Calldata []byte // approve(spender, 0) encoded
}

// RescueFinding pairs one discovered approval with its revoke template.
type RescueFinding struct {
	Approval ApprovalRecord
	Revoke   RevokeTx
}

// RescueReport is RescueScanner.Rescue's output: every active approval for
// a wallet, classified and paired with an unsigned revoke transaction, plus
// a rule-based plain-language explanation.
type RescueReport struct {
	Wallet        Address
	Findings      []RescueFinding
	WhatItMeans   string
	WhatYouCanDo  string
}
