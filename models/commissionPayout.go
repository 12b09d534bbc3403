package models

import (
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionPayout records one payment transaction against a revenue
// schedule's commission, split by recipient type. It is a ledger only and
// never participates in reconciliation math.
type CommissionPayout struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	RevenueScheduleId int             `gorm:"index;not null" json:"revenue_schedule_id" binding:"required"`
	SplitType         PayoutSplitType `gorm:"type:enum('House','HouseRep','Subagent');not null" json:"split_type" binding:"required"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" binding:"required"`
	PaidAt            time.Time       `gorm:"index;not null" json:"paid_at" binding:"required"`
	Status            PayoutStatus    `gorm:"type:enum('Posted','Voided');not null;default:'Posted'" json:"status"`
	Notes             string          `gorm:"type:text" json:"notes"`
	VoidedAt          *time.Time      `json:"voided_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrorPayoutVoided = errors.New("payout is already voided")

// RecordPayout writes the payout and an audit entry in the caller's tx.
func RecordPayout(tx *gorm.DB, payout *CommissionPayout) error {
	if !payout.SplitType.Valid() {
		return errors.New("split_type must be House, HouseRep or Subagent")
	}
	if _, err := utils.FetchModelTx[RevenueSchedule](tx, payout.RevenueScheduleId, payout.TenantId); err != nil {
		return err
	}
	payout.Status = PayoutStatusPosted
	if err := tx.Create(payout).Error; err != nil {
		return err
	}
	_, err := CreateAuditLog(tx, "CommissionPayout", payout.ID, AuditActionRecordPayout,
		nil, payout, AuditMetadata{Detail: map[string]interface{}{
			"revenue_schedule_id": payout.RevenueScheduleId,
			"split_type":          payout.SplitType,
		}})
	return err
}

// VoidPayout marks a posted payout voided. Voiding twice is an error.
func VoidPayout(tx *gorm.DB, id int, tenantId string) (CommissionPayout, error) {
	payout, err := utils.FetchModelTx[CommissionPayout](tx, id, tenantId)
	if err != nil {
		return payout, err
	}
	if payout.Status == PayoutStatusVoided {
		return payout, ErrorPayoutVoided
	}
	previous := payout
	now := time.Now()
	payout.Status = PayoutStatusVoided
	payout.VoidedAt = &now
	err = tx.Model(&CommissionPayout{}).
		Where("id = ? AND tenant_id = ?", id, tenantId).
		Updates(map[string]interface{}{"status": PayoutStatusVoided, "voided_at": now}).Error
	if err != nil {
		return payout, err
	}
	_, err = CreateAuditLog(tx, "CommissionPayout", payout.ID, AuditActionVoidPayout,
		previous, payout, AuditMetadata{})
	return payout, err
}

// ListPayoutsForSchedule returns the schedule's payouts, newest first.
func ListPayoutsForSchedule(db *gorm.DB, scheduleId int, tenantId string) ([]CommissionPayout, error) {
	var payouts []CommissionPayout
	err := db.Where("revenue_schedule_id = ? AND tenant_id = ?", scheduleId, tenantId).
		Order("paid_at desc").Find(&payouts).Error
	return payouts, err
}
