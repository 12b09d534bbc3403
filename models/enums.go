package models

import "errors"

type DepositLineItemStatus string

const (
	DepositLineItemStatusUnmatched        DepositLineItemStatus = "Unmatched"
	DepositLineItemStatusSuggested        DepositLineItemStatus = "Suggested"
	DepositLineItemStatusMatched          DepositLineItemStatus = "Matched"
	DepositLineItemStatusPartiallyMatched DepositLineItemStatus = "PartiallyMatched"
	DepositLineItemStatusIgnored          DepositLineItemStatus = "Ignored"
)

type DepositLineMatchStatus string

const (
	DepositLineMatchStatusSuggested DepositLineMatchStatus = "Suggested"
	DepositLineMatchStatusApplied   DepositLineMatchStatus = "Applied"
)

type MatchSource string

const (
	MatchSourceAuto   MatchSource = "Auto"
	MatchSourceManual MatchSource = "Manual"
)

func (s MatchSource) Valid() bool {
	return s == MatchSourceAuto || s == MatchSourceManual
}

type MatchType string

const (
	MatchTypeHierarchical MatchType = "Hierarchical"
	MatchTypeLegacy       MatchType = "Legacy"
)

type RevenueScheduleStatus string

const (
	RevenueScheduleStatusUnreconciled RevenueScheduleStatus = "Unreconciled"
	RevenueScheduleStatusReconciled   RevenueScheduleStatus = "Reconciled"
	RevenueScheduleStatusOverpaid     RevenueScheduleStatus = "Overpaid"
	RevenueScheduleStatusUnderpaid    RevenueScheduleStatus = "Underpaid"
)

type BillingStatus string

const (
	BillingStatusOpen       BillingStatus = "Open"
	BillingStatusInDispute  BillingStatus = "InDispute"
	BillingStatusReconciled BillingStatus = "Reconciled"
)

type BillingStatusSource string

const (
	BillingStatusSourceAuto       BillingStatusSource = "Auto"
	BillingStatusSourceSettlement BillingStatusSource = "Settlement"
	BillingStatusSourceManual     BillingStatusSource = "Manual"
)

type FlexClassification string

const (
	FlexClassificationNormal             FlexClassification = "Normal"
	FlexClassificationProduct            FlexClassification = "FlexProduct"
	FlexClassificationChargeback         FlexClassification = "FlexChargeback"
	FlexClassificationChargebackReversal FlexClassification = "FlexChargebackReversal"
)

// IsFlex reports whether the schedule sits in the flex/dispute pipeline.
func (f FlexClassification) IsFlex() bool {
	return f == FlexClassificationProduct || f == FlexClassificationChargeback || f == FlexClassificationChargebackReversal
}

// IsPendingChargeback reports whether a Suggested flex match may be approved.
func (f FlexClassification) IsPendingChargeback() bool {
	return f == FlexClassificationChargeback || f == FlexClassificationChargebackReversal
}

type FlexResolutionAction string

const (
	FlexResolutionAdjust  FlexResolutionAction = "Adjust"
	FlexResolutionProduct FlexResolutionAction = "FlexProduct"
	FlexResolutionManual  FlexResolutionAction = "Manual"
)

func ParseFlexResolutionAction(s string) (FlexResolutionAction, error) {
	switch FlexResolutionAction(s) {
	case FlexResolutionAdjust, FlexResolutionProduct, FlexResolutionManual:
		return FlexResolutionAction(s), nil
	}
	return "", errors.New("invalid flex action: must be Adjust, FlexProduct or Manual")
}

type SettlementAction string

const (
	SettlementActionAcceptActual SettlementAction = "AcceptActual"
	SettlementActionWriteOff     SettlementAction = "WriteOff"
)

func ParseSettlementAction(s string) (SettlementAction, error) {
	switch SettlementAction(s) {
	case SettlementActionAcceptActual, SettlementActionWriteOff:
		return SettlementAction(s), nil
	}
	return "", errors.New("invalid settlement action: must be AcceptActual or WriteOff")
}

type PayoutSplitType string

const (
	PayoutSplitTypeHouse    PayoutSplitType = "House"
	PayoutSplitTypeHouseRep PayoutSplitType = "HouseRep"
	PayoutSplitTypeSubagent PayoutSplitType = "Subagent"
)

func (s PayoutSplitType) Valid() bool {
	return s == PayoutSplitTypeHouse || s == PayoutSplitTypeHouseRep || s == PayoutSplitTypeSubagent
}

type PayoutStatus string

const (
	PayoutStatusPosted PayoutStatus = "Posted"
	PayoutStatusVoided PayoutStatus = "Voided"
)

type EngineMode string

const (
	EngineModeLegacy       EngineMode = "legacy"
	EngineModeHierarchical EngineMode = "hierarchical"
)

type FinalizeDisputedPolicy string

const (
	FinalizePolicyBlockAll          FinalizeDisputedPolicy = "block_all"
	FinalizePolicyAllowManagerAdmin FinalizeDisputedPolicy = "allow_manager_admin"
	FinalizePolicyAllowAll          FinalizeDisputedPolicy = "allow_all"
)

// AuditAction is the closed set of semantic operations recorded in the audit
// log. Undo handlers switch over these; keep the set exhaustive.
type AuditAction string

const (
	AuditActionApplyMatch           AuditAction = "ApplyMatch"
	AuditActionApplyMatchGroup      AuditAction = "ApplyMatchGroup"
	AuditActionUndoMatch            AuditAction = "UndoMatch"
	AuditActionAutoMatchApply       AuditAction = "AutoMatchApply"
	AuditActionAutoFill             AuditAction = "AutoFillFromDepositMatch"
	AuditActionUndoAutoFill         AuditAction = "UndoAutoFillFromDepositMatch"
	AuditActionResolveFlexAdjust    AuditAction = "ResolveFlexAdjust"
	AuditActionResolveFlexProduct   AuditAction = "ResolveFlexProduct"
	AuditActionResolveFlexManual    AuditAction = "ResolveFlexManual"
	AuditActionApproveFlex          AuditAction = "ApproveFlex"
	AuditActionApplyFlexToFuture    AuditAction = "ApplyFlexToFuture"
	AuditActionSettleAcceptActual   AuditAction = "SettleAcceptActual"
	AuditActionSettleWriteOff       AuditAction = "SettleWriteOff"
	AuditActionBulkRateUpdate       AuditAction = "BulkRateUpdate"
	AuditActionBulkSplitUpdate      AuditAction = "BulkSplitUpdate"
	AuditActionFinalizeDeposit      AuditAction = "FinalizeDeposit"
	AuditActionRecordPayout         AuditAction = "RecordPayout"
	AuditActionVoidPayout           AuditAction = "VoidPayout"
	AuditActionBillingStatusSweep   AuditAction = "BillingStatusSweep"
	AuditActionBillingStatusChange  AuditAction = "BillingStatusChange"
	AuditActionScheduleStatusChange AuditAction = "ScheduleStatusChange"
)

// Outbox publish lifecycle.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusPublished  = "PUBLISHED"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// ReconReferenceType tags outbox records by originating entity.
type ReconReferenceType string

const (
	ReconReferenceTypeDeposit         ReconReferenceType = "Deposit"
	ReconReferenceTypeDepositLineItem ReconReferenceType = "DepositLineItem"
	ReconReferenceTypeRevenueSchedule ReconReferenceType = "RevenueSchedule"
	ReconReferenceTypeMatch           ReconReferenceType = "DepositLineMatch"
)
