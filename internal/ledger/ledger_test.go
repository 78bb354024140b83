package ledger

import (
	"math"
	"testing"
	"time"

	"tripledger/internal/core"
)

const eps = 1e-9

func testTrip() core.Trip {
	t := core.NewTrip("t1", "Osaka", "Osaka", "2025-06-01", "2025-06-05", core.IconPlane, core.UserProfile{Name: "A"})
	t.Members = append(t.Members,
		core.Member{ID: "b", Name: "Bob"},
		core.Member{ID: "c", Name: "Cara"},
	)
	return t
}

func splitSum(split map[string]float64) float64 {
	total := 0.0
	for _, v := range split {
		total += v
	}
	return total
}

func TestComputeSplitEqual(t *testing.T) {
	split := ComputeSplit(3000, []string{"me", "b", "c"}, nil)
	for _, id := range []string{"me", "b", "c"} {
		if math.Abs(split[id]-1000) > eps {
			t.Fatalf("expected 1000 for %s, got %v", id, split[id])
		}
	}
	if math.Abs(splitSum(split)-3000) > eps {
		t.Fatalf("split does not sum to amount: %v", splitSum(split))
	}
}

func TestComputeSplitManualRemainder(t *testing.T) {
	split := ComputeSplit(1000, []string{"x", "y", "z"}, map[string]float64{"x": 700})
	if split["x"] != 700 {
		t.Fatalf("manual value not verbatim: %v", split["x"])
	}
	if math.Abs(split["y"]-150) > eps || math.Abs(split["z"]-150) > eps {
		t.Fatalf("expected 150 each for auto members, got y=%v z=%v", split["y"], split["z"])
	}
}

func TestComputeSplitAllManual(t *testing.T) {
	manual := map[string]float64{"a": 600, "b": 400}
	split := ComputeSplit(1000, []string{"a", "b"}, manual)
	if split["a"] != 600 || split["b"] != 400 {
		t.Fatalf("expected manual values verbatim, got %v", split)
	}
	if math.Abs(splitSum(split)-1000) > eps {
		t.Fatalf("split does not sum to amount")
	}
}

func TestComputeSplitEmptySelection(t *testing.T) {
	split := ComputeSplit(500, nil, nil)
	if len(split) != 0 {
		t.Fatalf("expected empty split, got %v", split)
	}
}

func TestComputeSplitSumProperty(t *testing.T) {
	cases := []struct {
		amount   float64
		selected []string
		manual   map[string]float64
	}{
		{999, []string{"a", "b", "c"}, nil},
		{1000, []string{"a", "b", "c"}, map[string]float64{"a": 700}},
		{250.5, []string{"a", "b"}, map[string]float64{"a": 100.25, "b": 150.25}},
		{100, []string{"a", "b", "c", "d", "e", "f", "g"}, nil},
	}
	for i, tc := range cases {
		split := ComputeSplit(tc.amount, tc.selected, tc.manual)
		if math.Abs(splitSum(split)-tc.amount) > 1e-6 {
			t.Fatalf("case %d: sum %v != amount %v", i, splitSum(split), tc.amount)
		}
	}
}

func TestAddAndDelete(t *testing.T) {
	trip := testTrip()
	e := core.Expense{
		ID: "e1", PayerID: "me", Amount: 3000, Currency: core.JPY,
		Item: "sushi", Date: time.Now(), Category: core.CategoryFood,
		SplitDetails: ComputeSplit(3000, []string{"me", "b", "c"}, nil),
	}

	after, err := Add(trip, e)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(after.Expenses) != 1 {
		t.Fatalf("expected one expense")
	}
	if len(trip.Expenses) != 0 {
		t.Fatalf("prior trip value mutated")
	}

	after = Delete(after, "e1")
	if len(after.Expenses) != 0 {
		t.Fatalf("expected expense removed")
	}
	after = Delete(after, "missing") // no-op
	if len(after.Expenses) != 0 {
		t.Fatalf("no-op delete changed expenses")
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	trip := testTrip()
	cases := []core.Expense{
		{ID: "x", PayerID: "me", Amount: 0, Currency: core.TWD, Item: "y", Date: time.Now()},
		{ID: "x", PayerID: "me", Amount: 10, Currency: core.TWD, Item: "", Date: time.Now()},
		{ID: "x", PayerID: "ghost", Amount: 10, Currency: core.TWD, Item: "y", Date: time.Now()},
		{ID: "x", PayerID: "me", Amount: 10, Currency: core.TWD, Item: "y", Date: time.Now(),
			SplitDetails: map[string]float64{"ghost": 10}},
	}
	for i, e := range cases {
		if _, err := Add(trip, e); err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
	}
	if len(trip.Expenses) != 0 {
		t.Fatalf("rejected adds must not mutate the ledger")
	}
}

func TestEditPreservesCategoryAndDate(t *testing.T) {
	trip := testTrip()
	created := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	trip, _ = Add(trip, core.Expense{
		ID: "e1", PayerID: "me", Amount: 100, Currency: core.TWD,
		Item: "taxi", Date: created, Category: core.CategoryTransport,
		SplitDetails: map[string]float64{"me": 100},
	})

	after, err := Edit(trip, "e1", core.Expense{
		PayerID: "b", Amount: 250, Currency: core.TWD, Item: "train",
		SplitDetails: map[string]float64{"b": 250},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	got := after.Expenses[0]
	if got.ID != "e1" {
		t.Fatalf("id must be preserved")
	}
	if got.Category != core.CategoryTransport {
		t.Fatalf("category must be immutable after creation, got %s", got.Category)
	}
	if !got.Date.Equal(created) {
		t.Fatalf("creation timestamp must be preserved")
	}
	if got.Item != "train" || got.Amount != 250 || got.PayerID != "b" {
		t.Fatalf("editable fields not replaced: %+v", got)
	}
}

func TestEditUnknownIDIsNoop(t *testing.T) {
	trip := testTrip()
	trip, _ = Add(trip, core.Expense{
		ID: "e1", PayerID: "me", Amount: 100, Currency: core.TWD,
		Item: "taxi", Date: time.Now(), SplitDetails: map[string]float64{"me": 100},
	})

	after, err := Edit(trip, "missing", core.Expense{
		PayerID: "me", Amount: 999, Currency: core.TWD, Item: "x",
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if after.Expenses[0].Amount != 100 {
		t.Fatalf("no-op edit changed the expense")
	}
}

func TestGroupedByDate(t *testing.T) {
	trip := testTrip()
	day := func(d int, hour int) time.Time {
		return time.Date(2025, 6, d, hour, 0, 0, 0, time.UTC)
	}
	for _, e := range []core.Expense{
		{ID: "e1", PayerID: "me", Amount: 10, Currency: core.TWD, Item: "a", Date: day(1, 9)},
		{ID: "e2", PayerID: "me", Amount: 20, Currency: core.TWD, Item: "b", Date: day(3, 12)},
		{ID: "e3", PayerID: "me", Amount: 30, Currency: core.TWD, Item: "c", Date: day(1, 21)},
	} {
		var err error
		trip, err = Add(trip, e)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	groups := GroupedByDate(trip)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Date != "2025-06-03" || groups[1].Date != "2025-06-01" {
		t.Fatalf("expected descending dates, got %s then %s", groups[0].Date, groups[1].Date)
	}
	if len(groups[1].Expenses) != 2 {
		t.Fatalf("expected two expenses on 2025-06-01")
	}
}

func TestStatsByCategoryAll(t *testing.T) {
	trip := testTrip()
	trip, _ = Add(trip, core.Expense{
		ID: "e1", PayerID: "me", Amount: 3000, Currency: core.JPY,
		Item: "ramen", Date: time.Now(), Category: core.CategoryFood,
		SplitDetails: ComputeSplit(3000, []string{"me", "b", "c"}, nil),
	})

	stats := StatsByCategory(trip, AllMembers, core.TWD)
	var food float64
	for _, ca := range stats.ByCategory {
		if ca.Category == core.CategoryFood {
			food = ca.Amount
		}
	}
	if food != 630 { // 3000 JPY * 0.21
		t.Fatalf("expected 630 TWD for Food, got %v", food)
	}
	if stats.Total != 630 {
		t.Fatalf("expected total 630, got %v", stats.Total)
	}
}

func TestStatsByCategoryMemberShare(t *testing.T) {
	trip := testTrip()
	trip, _ = Add(trip, core.Expense{
		ID: "e1", PayerID: "me", Amount: 3000, Currency: core.JPY,
		Item: "ramen", Date: time.Now(), Category: core.CategoryFood,
		SplitDetails: ComputeSplit(3000, []string{"me", "b", "c"}, nil),
	})
	trip, _ = Add(trip, core.Expense{
		ID: "e2", PayerID: "b", Amount: 500, Currency: core.TWD,
		Item: "souvenir", Date: time.Now(), Category: core.CategoryShopping,
		SplitDetails: map[string]float64{"b": 500},
	})

	stats := StatsByCategory(trip, "me", core.TWD)
	for _, ca := range stats.ByCategory {
		switch ca.Category {
		case core.CategoryFood:
			if ca.Amount != 210 { // 1000 JPY share * 0.21
				t.Fatalf("expected 210 for Food, got %v", ca.Amount)
			}
		case core.CategoryShopping:
			if ca.Amount != 0 {
				t.Fatalf("expense without me share must not count, got %v", ca.Amount)
			}
		}
	}
}

func TestStatsDisplayCurrencyConversion(t *testing.T) {
	trip := testTrip()
	trip, _ = Add(trip, core.Expense{
		ID: "e1", PayerID: "me", Amount: 630, Currency: core.TWD,
		Item: "ticket", Date: time.Now(), Category: core.CategoryTransport,
		SplitDetails: map[string]float64{"me": 630},
	})

	stats := StatsByCategory(trip, AllMembers, core.JPY)
	var transport float64
	for _, ca := range stats.ByCategory {
		if ca.Category == core.CategoryTransport {
			transport = ca.Amount
		}
	}
	if transport != 3000 { // 630 TWD / 0.21
		t.Fatalf("expected 3000 JPY, got %v", transport)
	}
}
