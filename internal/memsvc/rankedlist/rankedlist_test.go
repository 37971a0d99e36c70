package rankedlist

import "testing"

func TestNormalizeRankItemIdempotent(t *testing.T) {
	inputs := []string{
		`  Rogue   One!!  `,
		"Café…",
		"“Star Wars”",
		"it's a trap.",
		"ALL CAPS,",
	}
	for _, in := range inputs {
		once := NormalizeRankItem(in)
		twice := NormalizeRankItem(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeRankItemSmartQuotes(t *testing.T) {
	got := NormalizeRankItem("‘Rogue One’")
	want := "'rogue one'"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestResolveTargetExactMatch(t *testing.T) {
	items := []Item{{Rank: 1, Value: "Japan"}, {Rank: 2, Value: "Italy"}}
	target := ResolveTarget("japan", items)
	if !target.Found || !target.ExactMatch || target.Item.Rank != 1 {
		t.Fatalf("expected exact match at rank 1, got %+v", target)
	}
}

func TestResolveTargetAliasRoundTrip(t *testing.T) {
	items := []Item{{Rank: 8, Value: "Star Wars: Rogue One"}}
	target := ResolveTarget("rogue one", items)
	if !target.Found {
		t.Fatalf("expected fuzzy match")
	}
	if target.CanonicalValue != "Star Wars: Rogue One" {
		t.Errorf("got canonical %q", target.CanonicalValue)
	}
}

func TestResolveTargetNoMatch(t *testing.T) {
	items := []Item{{Rank: 1, Value: "Japan"}}
	target := ResolveTarget("Germany", items)
	if target.Found {
		t.Errorf("expected no match, got %+v", target)
	}
}

func TestPlanExplicitNoop(t *testing.T) {
	items := []Item{{Rank: 1, Value: "Japan"}, {Rank: 2, Value: "Italy"}}
	plan := PlanExplicit(items, 2, "Italy")
	if plan.Action != ActionNoop {
		t.Fatalf("expected noop, got %v", plan.Action)
	}
}

func TestPlanExplicitInsert(t *testing.T) {
	// seed [Japan, Italy, New Zealand, Spain, Greece], insert Iceland at 3
	items := []Item{
		{Rank: 1, Value: "Japan"}, {Rank: 2, Value: "Italy"}, {Rank: 3, Value: "New Zealand"},
		{Rank: 4, Value: "Spain"}, {Rank: 5, Value: "Greece"},
	}
	plan := PlanExplicit(items, 3, "Iceland")
	if plan.Action != ActionInsert {
		t.Fatalf("expected insert, got %v", plan.Action)
	}
	if plan.FinalRank != 3 {
		t.Fatalf("expected final rank 3, got %d", plan.FinalRank)
	}
	if len(plan.Shifts) != 3 {
		t.Fatalf("expected 3 shifts (ranks 5,4,3 -> +1), got %d: %+v", len(plan.Shifts), plan.Shifts)
	}
	// high to low order
	if plan.Shifts[0].FromRank != 5 || plan.Shifts[0].ToRank != 6 {
		t.Errorf("expected first shift 5->6, got %+v", plan.Shifts[0])
	}
}

func TestPlanExplicitAppendBeyondLength(t *testing.T) {
	// seed [Japan, Italy, New Zealand], #99 Morocco
	items := []Item{{Rank: 1, Value: "Japan"}, {Rank: 2, Value: "Italy"}, {Rank: 3, Value: "New Zealand"}}
	plan := PlanExplicit(items, 99, "Morocco")
	if plan.Action != ActionAppend {
		t.Fatalf("expected append, got %v", plan.Action)
	}
	if plan.FinalRank != 4 {
		t.Fatalf("expected clamp to rank 4, got %d", plan.FinalRank)
	}
}

func TestPlanExplicitMove(t *testing.T) {
	// seed [Japan, Italy, New Zealand, Spain, Greece, Thailand, Portugal]
	// move Thailand (rank 6) to rank 2
	items := []Item{
		{Rank: 1, Value: "Japan"}, {Rank: 2, Value: "Italy"}, {Rank: 3, Value: "New Zealand"},
		{Rank: 4, Value: "Spain"}, {Rank: 5, Value: "Greece"}, {Rank: 6, Value: "Thailand"},
		{Rank: 7, Value: "Portugal"},
	}
	plan := PlanExplicit(items, 2, "Thailand")
	if plan.Action != ActionMove {
		t.Fatalf("expected move, got %v", plan.Action)
	}
	if plan.FinalRank != 2 {
		t.Fatalf("expected final rank 2, got %d", plan.FinalRank)
	}
	// shift range [2..5] down by +1, high to low
	if len(plan.Shifts) != 4 {
		t.Fatalf("expected 4 shifts, got %d: %+v", len(plan.Shifts), plan.Shifts)
	}
	if plan.Shifts[0].FromRank != 5 || plan.Shifts[0].ToRank != 6 {
		t.Errorf("expected first shift 5->6, got %+v", plan.Shifts[0])
	}
	if plan.Shifts[3].FromRank != 2 || plan.Shifts[3].ToRank != 3 {
		t.Errorf("expected last shift 2->3, got %+v", plan.Shifts[3])
	}
}

func TestPlanExplicitAliasMove(t *testing.T) {
	// alias move to rank 2
	items := []Item{
		{Rank: 1, Value: "Japan"}, {Rank: 8, Value: "Star Wars: Rogue One"},
	}
	plan := PlanExplicit(items, 2, "rogue one")
	if plan.StoreValue != "Star Wars: Rogue One" {
		t.Errorf("expected canonical value stored, got %q", plan.StoreValue)
	}
	if plan.FinalRank != 2 {
		t.Errorf("expected final rank 2, got %d", plan.FinalRank)
	}
	if len(plan.RemoveRanks) != 1 || plan.RemoveRanks[0] != 8 {
		t.Errorf("expected old rank 8 retired, got %+v", plan.RemoveRanks)
	}
}

func TestPlanAtomicAppendDuplicateBlocked(t *testing.T) {
	items := []Item{{Rank: 1, Value: "Japan"}, {Rank: 5, Value: "Greece"}}
	d := PlanAtomicAppend(items, 6, "greece")
	if !d.Duplicate || d.ExistingRank != 5 {
		t.Fatalf("expected duplicate blocked at rank 5, got %+v", d)
	}
}

func TestPlanAtomicAppendNewValue(t *testing.T) {
	items := []Item{{Rank: 1, Value: "Japan"}}
	d := PlanAtomicAppend(items, 1, "Portugal")
	if d.Duplicate {
		t.Fatalf("did not expect duplicate")
	}
	if d.Rank != 2 {
		t.Fatalf("expected rank 2, got %d", d.Rank)
	}
}
