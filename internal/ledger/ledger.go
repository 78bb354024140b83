// Package ledger implements the per-trip expense ledger: cost splitting,
// edits, date grouping and category statistics. Operations are pure value
// transformations over core.Trip.
package ledger

import (
	"fmt"
	"math"
	"sort"

	"tripledger/internal/core"
)

// AllMembers is the member filter value that aggregates the full amount
// of every expense instead of a single member's share.
const AllMembers = "all"

// ComputeSplit builds splitDetails for an expense. Members present in
// manual get their value verbatim; the remainder of amount after all
// manual values is divided equally among the selected members without a
// manual value. An empty selection yields an empty split, which is a
// legal degenerate state.
func ComputeSplit(amount float64, selected []string, manual map[string]float64) map[string]float64 {
	split := make(map[string]float64, len(selected))

	manualSum := 0.0
	var auto []string
	for _, id := range selected {
		if v, ok := manual[id]; ok {
			split[id] = v
			manualSum += v
		} else {
			auto = append(auto, id)
		}
	}

	if len(auto) > 0 {
		share := (amount - manualSum) / float64(len(auto))
		for _, id := range auto {
			split[id] = share
		}
	}
	return split
}

// Add validates and appends the expense. The caller assigns id, creation
// timestamp and category beforehand; category is immutable afterwards.
func Add(t core.Trip, e core.Expense) (core.Trip, error) {
	if err := e.Validate(); err != nil {
		return t, fmt.Errorf("add expense: %w", err)
	}
	if err := checkMembership(t, e); err != nil {
		return t, fmt.Errorf("add expense: %w", err)
	}
	if !e.Category.Valid() {
		e.Category = core.CategoryOther
	}

	out := t.Clone()
	out.Expenses = append(out.Expenses, e)
	return out, nil
}

// Edit replaces the editable fields (item, amount, currency, payer,
// split) of the expense with the given id. Id, category and creation
// timestamp are preserved; an unknown id leaves the trip unchanged.
func Edit(t core.Trip, id string, upd core.Expense) (core.Trip, error) {
	if err := upd.Validate(); err != nil {
		return t, fmt.Errorf("edit expense: %w", err)
	}
	if err := checkMembership(t, upd); err != nil {
		return t, fmt.Errorf("edit expense: %w", err)
	}

	out := t.Clone()
	for i := range out.Expenses {
		if out.Expenses[i].ID != id {
			continue
		}
		prev := out.Expenses[i]
		upd.ID = prev.ID
		upd.Category = prev.Category
		upd.Date = prev.Date
		out.Expenses[i] = upd
		return out, nil
	}
	return t, nil
}

// Delete removes the expense by id; an unknown id is a no-op.
func Delete(t core.Trip, id string) core.Trip {
	out := t.Clone()
	filtered := out.Expenses[:0]
	for _, e := range out.Expenses {
		if e.ID != id {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == len(out.Expenses) {
		return t
	}
	out.Expenses = filtered
	return out
}

// DateGroup is one calendar day's expenses for display.
type DateGroup struct {
	Date     string         `json:"date"` // YYYY-MM-DD
	Expenses []core.Expense `json:"expenses"`
}

// GroupedByDate partitions expenses by the calendar day of their stored
// timestamp, most recent day first. Purely derived, never persisted.
func GroupedByDate(t core.Trip) []DateGroup {
	byDate := map[string][]core.Expense{}
	for _, e := range t.Expenses {
		key := e.Date.Format(core.DateLayout)
		byDate[key] = append(byDate[key], e)
	}

	out := make([]DateGroup, 0, len(byDate))
	for date, expenses := range byDate {
		out = append(out, DateGroup{Date: date, Expenses: expenses})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// CategoryAmount is one category's aggregated amount in the display
// currency, rounded to the nearest whole unit.
type CategoryAmount struct {
	Category core.Category `json:"category"`
	Amount   float64       `json:"amount"`
}

// Stats is the category breakdown for one member filter and display
// currency.
type Stats struct {
	ByCategory []CategoryAmount `json:"byCategory"`
	Total      float64          `json:"total"`
	Currency   core.Currency    `json:"currency"`
}

// StatsByCategory sums expenses per category. With memberFilter=="all"
// the full amount of every expense counts; otherwise only the member's
// splitDetails share, and only for expenses where that share is positive.
// Sums run in the base currency and convert to display at the end;
// rounding happens only here, at the point of display.
func StatsByCategory(t core.Trip, memberFilter string, display core.Currency) Stats {
	sums := map[core.Category]float64{}
	for _, c := range core.Categories() {
		sums[c] = 0
	}

	for _, e := range t.Expenses {
		relevant := memberFilter == AllMembers || e.SplitDetails[memberFilter] > 0
		if !relevant {
			continue
		}
		amount := core.ToBase(e.Amount, e.Currency)
		if memberFilter != AllMembers {
			amount = core.ToBase(e.SplitDetails[memberFilter], e.Currency)
		}
		sums[e.Category] += core.FromBase(amount, display)
	}

	stats := Stats{Currency: display}
	for _, c := range core.Categories() {
		rounded := math.Round(sums[c])
		stats.ByCategory = append(stats.ByCategory, CategoryAmount{Category: c, Amount: rounded})
		stats.Total += rounded
	}
	return stats
}

// checkMembership enforces that the payer and every split key reference
// members of the trip at write time.
func checkMembership(t core.Trip, e core.Expense) error {
	if !t.HasMember(e.PayerID) {
		return fmt.Errorf("payer %q: %w", e.PayerID, core.ErrUnknownMember)
	}
	for id := range e.SplitDetails {
		if !t.HasMember(id) {
			return fmt.Errorf("split member %q: %w", id, core.ErrUnknownMember)
		}
	}
	return nil
}
