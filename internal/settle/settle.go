// Package settle reduces per-member net positions into a short list of
// pairwise transfers that zero all balances.
package settle

import (
	"math"
	"sort"

	"tripledger/internal/core"
)

// Tolerance is the currency-rounding slack, in base-currency units, that
// absorbs float drift from equal splits. Residual nets within Tolerance
// of zero count as settled.
const Tolerance = 1.0

// Position is one member's net balance in the base currency. Positive
// means the member is owed money, negative means the member owes.
type Position struct {
	MemberID string  `json:"memberId"`
	Net      float64 `json:"net"`
}

// Transfer is a single directed payment instruction in the base currency.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Positions computes every member's net position in roster order: total
// paid minus total owed across all expenses, converted to base currency.
func Positions(t core.Trip) []Position {
	net := make(map[string]float64, len(t.Members))
	for _, e := range t.Expenses {
		net[e.PayerID] += core.ToBase(e.Amount, e.Currency)
		for memberID, share := range e.SplitDetails {
			net[memberID] -= core.ToBase(share, e.Currency)
		}
	}

	out := make([]Position, len(t.Members))
	for i, m := range t.Members {
		out[i] = Position{MemberID: m.ID, Net: net[m.ID]}
	}
	return out
}

// Settle greedily matches the most-negative debtor against the
// most-positive creditor until one side is exhausted. Sorts are stable,
// so ties keep input order and the result is deterministic for the same
// ordered positions. The transfer list fully zeroes all balances (within
// Tolerance) and has at most debtors+creditors-1 entries; that is minimal
// for the common few-distinct-values case but not provably optimal for
// arbitrary inputs.
func Settle(positions []Position) []Transfer {
	var debtors, creditors []Position
	for _, p := range positions {
		switch {
		case p.Net < -Tolerance:
			debtors = append(debtors, p)
		case p.Net > Tolerance:
			creditors = append(creditors, p)
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].Net < debtors[j].Net })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].Net > creditors[j].Net })

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := math.Min(-debtor.Net, creditor.Net)
		transfers = append(transfers, Transfer{From: debtor.MemberID, To: creditor.MemberID, Amount: amount})

		debtor.Net += amount
		creditor.Net -= amount
		if math.Abs(debtor.Net) < Tolerance {
			i++
		}
		if creditor.Net < Tolerance {
			j++
		}
	}
	return transfers
}

// Transfers computes the settlement plan for a whole trip.
func Transfers(t core.Trip) []Transfer {
	return Settle(Positions(t))
}
