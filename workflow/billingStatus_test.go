package workflow

import (
	"testing"

	"github.com/commissionedge/crm_backend/models"
)

func TestBillingStatus_ManualSourceIsFrozen(t *testing.T) {
	// A manually set status never moves, whatever the schedule looks like.
	next := ComputeNextBillingStatus(
		models.BillingStatusReconciled,
		models.BillingStatusSourceManual,
		models.RevenueScheduleStatusOverpaid,
		models.FlexClassificationChargeback,
		true, true,
	)
	if next != models.BillingStatusReconciled {
		t.Fatalf("manual source must be authoritative, got %s", next)
	}
}

func TestBillingStatus_FlexClassificationForcesDispute(t *testing.T) {
	next := ComputeNextBillingStatus(
		models.BillingStatusOpen,
		models.BillingStatusSourceAuto,
		models.RevenueScheduleStatusReconciled,
		models.FlexClassificationChargeback,
		true, false,
	)
	if next != models.BillingStatusInDispute {
		t.Fatalf("flex classification must force InDispute, got %s", next)
	}
}

func TestBillingStatus_DisputeIsSticky(t *testing.T) {
	// Once disputed, an otherwise reconciled schedule stays disputed until
	// settlement or an approved flex clears the classification.
	next := ComputeNextBillingStatus(
		models.BillingStatusInDispute,
		models.BillingStatusSourceAuto,
		models.RevenueScheduleStatusReconciled,
		models.FlexClassificationNormal,
		true, false,
	)
	if next != models.BillingStatusInDispute {
		t.Fatalf("dispute must be sticky, got %s", next)
	}
}

func TestBillingStatus_ReconciledRequiresFinalizedMatches(t *testing.T) {
	// Schedule status Reconciled alone is not enough: every applied match
	// must itself be reconciled.
	next := ComputeNextBillingStatus(
		models.BillingStatusOpen,
		models.BillingStatusSourceAuto,
		models.RevenueScheduleStatusReconciled,
		models.FlexClassificationNormal,
		true, true,
	)
	if next != models.BillingStatusOpen {
		t.Fatalf("unreconciled matches must hold the status at Open, got %s", next)
	}

	next = ComputeNextBillingStatus(
		models.BillingStatusOpen,
		models.BillingStatusSourceAuto,
		models.RevenueScheduleStatusReconciled,
		models.FlexClassificationNormal,
		true, false,
	)
	if next != models.BillingStatusReconciled {
		t.Fatalf("reconciled schedule with finalized matches must reconcile, got %s", next)
	}
}

func TestBillingStatus_NoMatchesStaysOpen(t *testing.T) {
	next := ComputeNextBillingStatus(
		models.BillingStatusReconciled,
		models.BillingStatusSourceAuto,
		models.RevenueScheduleStatusUnreconciled,
		models.FlexClassificationNormal,
		false, false,
	)
	if next != models.BillingStatusOpen {
		t.Fatalf("a schedule with no applied matches must fall back to Open, got %s", next)
	}
}
