package workflow

import (
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// FlexAction is the outcome of the flex decision ladder.
type FlexAction string

const (
	FlexActionNone           FlexAction = "none"
	FlexActionAutoAdjust     FlexAction = "auto_adjust"
	FlexActionAutoChargeback FlexAction = "auto_chargeback"
	FlexActionPrompt         FlexAction = "prompt"
)

// FlexDecisionInput carries the recomputed schedule balances plus the line
// and product facts the ladder needs. Commission figures are optional; zero
// values mean no commission-side evaluation.
type FlexDecisionInput struct {
	ExpectedUsageNet      decimal.Decimal
	UsageBalance          decimal.Decimal
	VarianceTolerance     decimal.Decimal
	HasNegativeLine       bool
	IsBonusLike           bool
	ExpectedCommissionNet decimal.Decimal
	CommissionDifference  decimal.Decimal
}

// FlexDecision is the full breakdown returned for the UI prompt and audit
// metadata, not just the action.
type FlexDecision struct {
	Action                FlexAction                    `json:"action"`
	UsageOverage          decimal.Decimal               `json:"usage_overage"`
	UsageUnderpayment     decimal.Decimal               `json:"usage_underpayment"`
	UsageToleranceAmount  decimal.Decimal               `json:"usage_tolerance_amount"`
	OverageAboveTolerance bool                          `json:"overage_above_tolerance"`
	CommissionOverage     decimal.Decimal               `json:"commission_overage"`
	AllowedPromptOptions  []models.FlexResolutionAction `json:"allowed_prompt_options"`
}

// EvaluateFlexDecision classifies an overpayment on a schedule. The ladder
// is strictly ordered: a chargeback line overrides everything, then no
// overage, then within tolerance, then prompt. Pure function, no I/O.
func EvaluateFlexDecision(input FlexDecisionInput) FlexDecision {
	tolerance := utils.ClampFraction(input.VarianceTolerance)
	epsilon := models.ReconciliationEpsilon

	decision := FlexDecision{
		UsageOverage:      utils.DecimalMax(input.UsageBalance.Neg(), decimal.Zero),
		UsageUnderpayment: utils.DecimalMax(input.UsageBalance, decimal.Zero),
		CommissionOverage: utils.DecimalMax(input.CommissionDifference.Neg(), decimal.Zero),
	}
	decision.UsageToleranceAmount = utils.DecimalMax(input.ExpectedUsageNet.Abs().Mul(tolerance), epsilon)

	if input.HasNegativeLine {
		decision.Action = FlexActionAutoChargeback
		return decision
	}

	usageOverageExists := decision.UsageOverage.GreaterThan(epsilon)
	commissionOverageExists := decision.CommissionOverage.GreaterThan(epsilon)
	if !usageOverageExists && !commissionOverageExists {
		decision.Action = FlexActionNone
		return decision
	}

	if usageOverageExists {
		decision.OverageAboveTolerance = decision.UsageOverage.GreaterThan(decision.UsageToleranceAmount.Add(epsilon))
	} else {
		// Commission-only overage follows the same ladder on commission figures.
		commissionTolerance := utils.DecimalMax(input.ExpectedCommissionNet.Abs().Mul(tolerance), epsilon)
		decision.OverageAboveTolerance = decision.CommissionOverage.GreaterThan(commissionTolerance.Add(epsilon))
	}

	if !decision.OverageAboveTolerance {
		decision.Action = FlexActionAutoAdjust
		return decision
	}

	decision.Action = FlexActionPrompt
	if input.IsBonusLike {
		decision.AllowedPromptOptions = []models.FlexResolutionAction{
			models.FlexResolutionAdjust, models.FlexResolutionManual,
		}
	} else {
		decision.AllowedPromptOptions = []models.FlexResolutionAction{
			models.FlexResolutionAdjust, models.FlexResolutionManual, models.FlexResolutionProduct,
		}
	}
	return decision
}
