package game

// Payout is what the ledger owes each side once a session ends.
type Payout struct {
	WinAmount    int64
	RefundAmount int64
}

// ComputePayout for a heads-up wager: the winner takes both stakes, a draw
// returns each stake. There is no rake.
func ComputePayout(wager int64, outcome Outcome) Payout {
	switch outcome {
	case Win:
		return Payout{WinAmount: wager * 2}
	case Draw:
		return Payout{RefundAmount: wager}
	default:
		return Payout{}
	}
}
