package models

import (
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepositLineMatch links one deposit line item to one revenue schedule with
// the amounts allocated from the line to the schedule. At most one row exists
// per (line, schedule) pair; re-applying upserts the amounts.
type DepositLineMatch struct {
	ID                int                    `gorm:"primary_key" json:"id"`
	TenantId          string                 `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	DepositLineItemId int                    `gorm:"index:idx_match_line_schedule,unique;not null" json:"deposit_line_item_id" binding:"required"`
	RevenueScheduleId int                    `gorm:"index:idx_match_line_schedule,unique;not null" json:"revenue_schedule_id" binding:"required"`
	MatchGroupId      *int                   `gorm:"index" json:"match_group_id"`
	UsageAmount       decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"usage_amount"`
	CommissionAmount  decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"commission_amount"`
	ConfidenceScore   decimal.Decimal        `gorm:"type:decimal(5,4);default:0" json:"confidence_score"`
	Status            DepositLineMatchStatus `gorm:"type:enum('Suggested','Applied');not null;default:'Suggested'" json:"status"`
	Source            MatchSource            `gorm:"type:enum('Auto','Manual');not null;default:'Manual'" json:"source"`
	Reconciled        *bool                  `gorm:"not null;default:false" json:"reconciled"`
	CreatedAt         time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

// DepositMatchGroup groups a multi-line/multi-schedule allocation applied in
// one transaction so it can be audited or undone as a unit.
type DepositMatchGroup struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	DepositId int       `gorm:"index;not null" json:"deposit_id" binding:"required"`
	MatchType MatchType `gorm:"type:enum('Hierarchical','Legacy');not null;default:'Hierarchical'" json:"match_type"`
	Status    string    `gorm:"size:20;not null;default:'Applied'" json:"status"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrorMatchReconciled = errors.New("match is reconciled and cannot be modified")

func (m *DepositLineMatch) IsReconciled() bool {
	return m.Reconciled != nil && *m.Reconciled
}

// UpsertMatch writes the match row keyed on (line, schedule). A race between
// two appliers resolves through the unique index to a single updated row.
func UpsertMatch(tx *gorm.DB, match *DepositLineMatch) error {
	var existing DepositLineMatch
	err := tx.Where("deposit_line_item_id = ? AND revenue_schedule_id = ? AND tenant_id = ?",
		match.DepositLineItemId, match.RevenueScheduleId, match.TenantId).First(&existing).Error
	if err == nil && existing.IsReconciled() {
		return ErrorMatchReconciled
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "deposit_line_item_id"}, {Name: "revenue_schedule_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"usage_amount", "commission_amount", "confidence_score",
			"status", "source", "match_group_id", "updated_at",
		}),
	}).Create(match).Error
}

func GetMatch(db *gorm.DB, id int, tenantId string) (DepositLineMatch, error) {
	return utils.FetchModelTx[DepositLineMatch](db, id, tenantId)
}

// GetSuggestedMatchForSchedule finds the pending (line, schedule) Suggested
// match used by flex approval.
func GetSuggestedMatchForSchedule(tx *gorm.DB, scheduleId int, tenantId string) (DepositLineMatch, error) {
	var match DepositLineMatch
	err := tx.Where("revenue_schedule_id = ? AND tenant_id = ? AND status = ?",
		scheduleId, tenantId, DepositLineMatchStatusSuggested).
		Order("created_at desc").First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return match, utils.ErrorRecordNotFound
	}
	return match, err
}

// ListAppliedMatchesForSchedule returns the schedule's Applied matches.
func ListAppliedMatchesForSchedule(tx *gorm.DB, scheduleId int, tenantId string) ([]DepositLineMatch, error) {
	var matches []DepositLineMatch
	err := tx.Where("revenue_schedule_id = ? AND tenant_id = ? AND status = ?",
		scheduleId, tenantId, DepositLineMatchStatusApplied).Find(&matches).Error
	return matches, err
}

// CountUnreconciledAppliedMatches reports how many Applied matches of the
// schedule are not yet finalized. The strict reconciled billing gate requires
// this to be zero.
func CountUnreconciledAppliedMatches(tx *gorm.DB, scheduleId int, tenantId string) (int64, error) {
	var count int64
	err := tx.Model(&DepositLineMatch{}).
		Where("revenue_schedule_id = ? AND tenant_id = ? AND status = ? AND reconciled = ?",
			scheduleId, tenantId, DepositLineMatchStatusApplied, false).
		Count(&count).Error
	return count, err
}

// DeleteMatch removes a match row. Reconciled matches are immutable.
func DeleteMatch(tx *gorm.DB, match DepositLineMatch) error {
	if match.IsReconciled() {
		return ErrorMatchReconciled
	}
	return tx.Where("id = ? AND tenant_id = ?", match.ID, match.TenantId).
		Delete(&DepositLineMatch{}).Error
}

func CreateMatchGroup(tx *gorm.DB, group *DepositMatchGroup) error {
	return tx.Create(group).Error
}
