package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestResolveScheduleStatus_NoMatchesIsUnreconciled(t *testing.T) {
	// Even a perfect zero balance means nothing without an applied match.
	status := ResolveScheduleStatus(0, d("100"), decimal.Zero, d("10"), decimal.Zero, d("0.05"))
	if status != RevenueScheduleStatusUnreconciled {
		t.Fatalf("expected Unreconciled with zero matches, got %s", status)
	}
}

func TestResolveScheduleStatus_WithinToleranceReconciles(t *testing.T) {
	// Expected 100 at 5% gives a 5 band on usage; 4 off on usage and a
	// commission inside its own band reconciles.
	status := ResolveScheduleStatus(1, d("100"), d("4"), d("10"), d("0.4"), d("0.05"))
	if status != RevenueScheduleStatusReconciled {
		t.Fatalf("expected Reconciled inside tolerance, got %s", status)
	}
}

func TestResolveScheduleStatus_BothSidesMustBeInsideTolerance(t *testing.T) {
	// Usage inside its band but commission off by 2 against a 0.5 band.
	status := ResolveScheduleStatus(1, d("100"), d("1"), d("10"), d("2"), d("0.05"))
	if status != RevenueScheduleStatusUnderpaid {
		t.Fatalf("expected Underpaid when commission misses its band, got %s", status)
	}
}

func TestResolveScheduleStatus_NegativeBalanceIsOverpaid(t *testing.T) {
	status := ResolveScheduleStatus(1, d("100"), d("-20"), d("10"), decimal.Zero, d("0.05"))
	if status != RevenueScheduleStatusOverpaid {
		t.Fatalf("expected Overpaid on negative usage balance, got %s", status)
	}

	// A commission overage alone also tips the schedule to Overpaid.
	status = ResolveScheduleStatus(1, d("100"), decimal.Zero, d("10"), d("-3"), d("0.05"))
	if status != RevenueScheduleStatusOverpaid {
		t.Fatalf("expected Overpaid on negative commission difference, got %s", status)
	}
}

func TestResolveScheduleStatus_PositiveBalanceIsUnderpaid(t *testing.T) {
	status := ResolveScheduleStatus(1, d("100"), d("30"), d("10"), d("3"), d("0.05"))
	if status != RevenueScheduleStatusUnderpaid {
		t.Fatalf("expected Underpaid, got %s", status)
	}
}

func TestResolveScheduleStatus_ZeroExpectedUsesEpsilonFloor(t *testing.T) {
	// Expected 0 floors the band at epsilon: an exact match reconciles,
	// any real remainder does not.
	status := ResolveScheduleStatus(1, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, d("0.05"))
	if status != RevenueScheduleStatusReconciled {
		t.Fatalf("expected Reconciled for exact zero match, got %s", status)
	}
	status = ResolveScheduleStatus(1, decimal.Zero, d("1"), decimal.Zero, decimal.Zero, d("0.05"))
	if status != RevenueScheduleStatusUnderpaid {
		t.Fatalf("expected Underpaid for a real remainder against zero expected, got %s", status)
	}
}

func TestResolveScheduleStatus_ToleranceIsClamped(t *testing.T) {
	// A tolerance above 1 clamps to 1; 100% of expected 100 is a 100 band.
	status := ResolveScheduleStatus(1, d("100"), d("99"), decimal.Zero, decimal.Zero, d("5"))
	if status != RevenueScheduleStatusReconciled {
		t.Fatalf("expected clamped tolerance to reconcile a 99 balance, got %s", status)
	}
	// A negative tolerance clamps to zero, leaving only the epsilon band.
	status = ResolveScheduleStatus(1, d("100"), d("1"), decimal.Zero, decimal.Zero, d("-0.5"))
	if status != RevenueScheduleStatusUnderpaid {
		t.Fatalf("expected zero-clamped tolerance to reject a 1 balance, got %s", status)
	}
}

func TestResolveScheduleStatus_Deterministic(t *testing.T) {
	// Recompute must be repeatable: same inputs, same status, every time.
	for i := 0; i < 50; i++ {
		status := ResolveScheduleStatus(2, d("250"), d("-12.5"), d("25"), d("0.1"), d("0.04"))
		if status != RevenueScheduleStatusOverpaid {
			t.Fatalf("run %d: expected Overpaid, got %s", i, status)
		}
	}
}
