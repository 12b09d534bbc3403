package models

import "testing"

func TestResolveLineStatus_SuggestedOnlyMatches(t *testing.T) {
	// A chargeback line whose match awaits flex approval has no applied
	// allocation yet but is no longer unmatched.
	line := DepositLineItem{Usage: d("-200"), Commission: d("-20")}
	if got := resolveLineStatus(line, 0, 1); got != DepositLineItemStatusSuggested {
		t.Fatalf("expected Suggested, got %s", got)
	}
}

func TestResolveLineStatus_NoMatchesIsUnmatched(t *testing.T) {
	line := DepositLineItem{Usage: d("200"), Commission: d("20")}
	if got := resolveLineStatus(line, 0, 0); got != DepositLineItemStatusUnmatched {
		t.Fatalf("expected Unmatched, got %s", got)
	}
}

func TestResolveLineStatus_AppliedMatchesWinOverSuggested(t *testing.T) {
	line := DepositLineItem{
		Usage:               d("200"),
		Commission:          d("20"),
		UsageAllocated:      d("200"),
		CommissionAllocated: d("20"),
	}
	if got := resolveLineStatus(line, 2, 1); got != DepositLineItemStatusMatched {
		t.Fatalf("expected Matched with full coverage, got %s", got)
	}
}

func TestResolveLineStatus_PartialCoverage(t *testing.T) {
	line := DepositLineItem{
		Usage:               d("200"),
		Commission:          d("20"),
		UsageAllocated:      d("150"),
		CommissionAllocated: d("20"),
	}
	if got := resolveLineStatus(line, 1, 0); got != DepositLineItemStatusPartiallyMatched {
		t.Fatalf("expected PartiallyMatched, got %s", got)
	}
}

func TestResolveLineStatus_IgnoredIsSticky(t *testing.T) {
	line := DepositLineItem{Status: DepositLineItemStatusIgnored}
	if got := resolveLineStatus(line, 0, 1); got != DepositLineItemStatusIgnored {
		t.Fatalf("expected Ignored to stick, got %s", got)
	}
}
