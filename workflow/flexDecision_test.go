package workflow

import (
	"testing"

	"github.com/commissionedge/crm_backend/models"
	"github.com/shopspring/decimal"
)

// DB-free: the flex ladder is a pure function over recomputed balances.

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestFlexDecision_OverageWithinTolerance_AutoAdjusts(t *testing.T) {
	// Expected 100, tolerance 10%, paid 105: overage 5 is inside the 10 band.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      d("-5"),
		VarianceTolerance: d("0.10"),
	})
	if decision.Action != FlexActionAutoAdjust {
		t.Fatalf("expected auto_adjust, got %s", decision.Action)
	}
	if !decision.UsageOverage.Equal(d("5")) {
		t.Fatalf("expected overage 5, got %s", decision.UsageOverage)
	}
	if decision.OverageAboveTolerance {
		t.Fatal("overage 5 against tolerance amount 10 must not be above tolerance")
	}
}

func TestFlexDecision_OverageAboveTolerance_Prompts(t *testing.T) {
	// Expected 100, tolerance 10%, paid 120: overage 20 exceeds the 10 band.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      d("-20"),
		VarianceTolerance: d("0.10"),
	})
	if decision.Action != FlexActionPrompt {
		t.Fatalf("expected prompt, got %s", decision.Action)
	}
	if !decision.OverageAboveTolerance {
		t.Fatal("overage 20 against tolerance amount 10 must be above tolerance")
	}
	want := []models.FlexResolutionAction{
		models.FlexResolutionAdjust, models.FlexResolutionManual, models.FlexResolutionProduct,
	}
	if len(decision.AllowedPromptOptions) != len(want) {
		t.Fatalf("expected %d prompt options, got %v", len(want), decision.AllowedPromptOptions)
	}
	for i, option := range want {
		if decision.AllowedPromptOptions[i] != option {
			t.Fatalf("prompt option %d: expected %s, got %s", i, option, decision.AllowedPromptOptions[i])
		}
	}
}

func TestFlexDecision_BonusLikePrompt_ExcludesFlexProduct(t *testing.T) {
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      d("-20"),
		VarianceTolerance: d("0.10"),
		IsBonusLike:       true,
	})
	if decision.Action != FlexActionPrompt {
		t.Fatalf("expected prompt, got %s", decision.Action)
	}
	for _, option := range decision.AllowedPromptOptions {
		if option == models.FlexResolutionProduct {
			t.Fatal("bonus-like schedules must not offer the FlexProduct resolution")
		}
	}
}

func TestFlexDecision_NegativeLine_OverridesEverything(t *testing.T) {
	// A chargeback line wins even with zero overage.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      decimal.Zero,
		VarianceTolerance: d("0.10"),
		HasNegativeLine:   true,
	})
	if decision.Action != FlexActionAutoChargeback {
		t.Fatalf("expected auto_chargeback, got %s", decision.Action)
	}

	// And wins over an overage that would otherwise prompt.
	decision = EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      d("-50"),
		VarianceTolerance: d("0.10"),
		HasNegativeLine:   true,
	})
	if decision.Action != FlexActionAutoChargeback {
		t.Fatalf("expected auto_chargeback to override the prompt path, got %s", decision.Action)
	}
}

func TestFlexDecision_NoOverage_NoAction(t *testing.T) {
	// Underpayment is not an overage; the ladder does nothing.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  d("100"),
		UsageBalance:      d("40"),
		VarianceTolerance: d("0.10"),
	})
	if decision.Action != FlexActionNone {
		t.Fatalf("expected none on underpayment, got %s", decision.Action)
	}
	if !decision.UsageUnderpayment.Equal(d("40")) {
		t.Fatalf("expected underpayment 40, got %s", decision.UsageUnderpayment)
	}
}

func TestFlexDecision_CommissionOnlyOverage_UsesCommissionTolerance(t *testing.T) {
	// No usage overage; commission overpaid by 3 against expected 10 at 10%:
	// tolerance amount is 1, so this prompts.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:      d("100"),
		UsageBalance:          decimal.Zero,
		VarianceTolerance:     d("0.10"),
		ExpectedCommissionNet: d("10"),
		CommissionDifference:  d("-3"),
	})
	if decision.Action != FlexActionPrompt {
		t.Fatalf("expected prompt on commission-only overage, got %s", decision.Action)
	}

	// Within the commission band it auto-adjusts.
	decision = EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:      d("100"),
		UsageBalance:          decimal.Zero,
		VarianceTolerance:     d("0.10"),
		ExpectedCommissionNet: d("10"),
		CommissionDifference:  d("-0.5"),
	})
	if decision.Action != FlexActionAutoAdjust {
		t.Fatalf("expected auto_adjust inside the commission band, got %s", decision.Action)
	}
}

func TestFlexDecision_ZeroExpected_UsesEpsilonFloor(t *testing.T) {
	// Expected 0 means the tolerance amount floors at epsilon, so any real
	// overage prompts instead of silently adjusting.
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:  decimal.Zero,
		UsageBalance:      d("-1"),
		VarianceTolerance: d("0.10"),
	})
	if decision.Action != FlexActionPrompt {
		t.Fatalf("expected prompt with zero expected usage, got %s", decision.Action)
	}
}
