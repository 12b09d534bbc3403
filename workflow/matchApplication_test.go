package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
)

func TestMatchStatusForLine_ChargebackRowStartsSuggested(t *testing.T) {
	line := models.DepositLineItem{Usage: d("-200"), Commission: d("-20")}
	if got := matchStatusForLine(line); got != models.DepositLineMatchStatusSuggested {
		t.Fatalf("negative line: expected Suggested, got %s", got)
	}
	line = models.DepositLineItem{Usage: d("200"), Commission: d("-20")}
	if got := matchStatusForLine(line); got != models.DepositLineMatchStatusSuggested {
		t.Fatalf("negative commission: expected Suggested, got %s", got)
	}
}

func TestMatchStatusForLine_PositiveRowStartsApplied(t *testing.T) {
	line := models.DepositLineItem{Usage: d("200"), Commission: d("20")}
	if got := matchStatusForLine(line); got != models.DepositLineMatchStatusApplied {
		t.Fatalf("positive line: expected Applied, got %s", got)
	}
	line = models.DepositLineItem{}
	if got := matchStatusForLine(line); got != models.DepositLineMatchStatusApplied {
		t.Fatalf("zero line: expected Applied, got %s", got)
	}
}

func TestApplyAdjustDeltas_BooksBothSides(t *testing.T) {
	schedule := models.RevenueSchedule{
		UsageAdjustment:            d("10"),
		ActualCommissionAdjustment: d("-2"),
	}
	updates := applyAdjustDeltas(&schedule, d("5"), d("1.50"))

	if !schedule.UsageAdjustment.Equal(d("15")) {
		t.Fatalf("expected usage adjustment 15, got %s", schedule.UsageAdjustment)
	}
	if !schedule.ActualCommissionAdjustment.Equal(d("-3.50")) {
		t.Fatalf("expected actual commission adjustment -3.50, got %s", schedule.ActualCommissionAdjustment)
	}
	usage, ok := updates["usage_adjustment"].(decimal.Decimal)
	if !ok || !usage.Equal(d("15")) {
		t.Fatalf("expected usage_adjustment update 15, got %v", updates["usage_adjustment"])
	}
	commission, ok := updates["actual_commission_adjustment"].(decimal.Decimal)
	if !ok || !commission.Equal(d("-3.50")) {
		t.Fatalf("expected actual_commission_adjustment update -3.50, got %v", updates["actual_commission_adjustment"])
	}
}

func TestApplyAdjustDeltas_ClosesCommissionDifference(t *testing.T) {
	// Expected 10, paid 11: commission overage 1. After booking, the actual
	// net drops back to expected and the difference closes to zero.
	schedule := models.RevenueSchedule{ExpectedCommission: d("10")}
	actualCommission := d("11")
	overage := actualCommission.Sub(schedule.ExpectedCommission)

	applyAdjustDeltas(&schedule, decimal.Zero, overage)

	actualNet := actualCommission.Add(schedule.ActualCommissionAdjustment)
	if !schedule.ExpectedCommission.Sub(actualNet).IsZero() {
		t.Fatalf("expected commission difference to close, got %s", schedule.ExpectedCommission.Sub(actualNet))
	}
}

func TestSettleSchedule_RejectsUnknownAction(t *testing.T) {
	ctx := utils.SetTenantIdInContext(context.Background(), "tenant-1")
	for _, action := range []string{"writeoff", "acceptactual", "Refund", ""} {
		_, err := SettleSchedule(ctx, SettleInput{
			RevenueScheduleId: 1,
			Action:            models.SettlementAction(action),
		})
		if err == nil {
			t.Fatalf("action %q: expected an error", action)
		}
		if !strings.Contains(err.Error(), "invalid settlement action") {
			t.Fatalf("action %q: expected invalid settlement action error, got %v", action, err)
		}
	}
}

func TestResolveFlex_RejectsUnknownAction(t *testing.T) {
	ctx := utils.SetTenantIdInContext(context.Background(), "tenant-1")
	for _, action := range []string{"adjust", "flexproduct", "Ignore", ""} {
		_, err := ResolveFlex(ctx, ResolveFlexInput{
			RevenueScheduleId: 1,
			Action:            models.FlexResolutionAction(action),
		})
		if err == nil {
			t.Fatalf("action %q: expected an error", action)
		}
		if !strings.Contains(err.Error(), "invalid flex action") {
			t.Fatalf("action %q: expected invalid flex action error, got %v", action, err)
		}
	}
}
