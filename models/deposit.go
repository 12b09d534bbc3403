package models

import (
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deposit is a receipt event from a vendor. The aggregate columns mirror the
// sums over its line items and are rewritten by RecomputeDepositAggregates
// after every line-level mutation, never adjusted in place.
type Deposit struct {
	ID                    int                `gorm:"primary_key" json:"id"`
	TenantId              string             `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	VendorId              int                `gorm:"index" json:"vendor_id"`
	VendorName            string             `gorm:"size:100" json:"vendor_name"`
	PaymentDate           time.Time          `gorm:"index;not null" json:"payment_date" binding:"required"`
	PaymentType           string             `gorm:"size:30" json:"payment_type"`
	ReferenceNumber       string             `gorm:"size:100" json:"reference_number"`
	TotalUsage            decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_usage"`
	TotalCommission       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_commission"`
	ItemsReconciled       int                `gorm:"default:0" json:"items_reconciled"`
	ItemsUnreconciled     int                `gorm:"default:0" json:"items_unreconciled"`
	UsageAllocated        decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"usage_allocated"`
	UsageUnallocated      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"usage_unallocated"`
	CommissionAllocated   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"commission_allocated"`
	CommissionUnallocated decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"commission_unallocated"`
	Finalized             *bool              `gorm:"not null;default:false" json:"finalized"`
	FinalizedAt           *time.Time         `json:"finalized_at"`
	FinalizedBy           int                `gorm:"default:0" json:"finalized_by"`
	LineItems             []*DepositLineItem `gorm:"foreignKey:DepositId" json:"line_items,omitempty"`
	Documents             []*Document        `gorm:"polymorphic:Reference" json:"documents,omitempty"`
	CreatedAt             time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrorDepositFinalized = errors.New("deposit is finalized and cannot be modified")

func (d *Deposit) IsFinalized() bool {
	return d.Finalized != nil && *d.Finalized
}

func GetDeposit(db *gorm.DB, id int, tenantId string) (Deposit, error) {
	return utils.FetchModelTx[Deposit](db, id, tenantId)
}

func GetDepositWithLines(db *gorm.DB, id int, tenantId string) (Deposit, error) {
	var deposit Deposit
	err := db.Preload("LineItems").
		Where("id = ? AND tenant_id = ?", id, tenantId).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return deposit, utils.ErrorRecordNotFound
	}
	return deposit, err
}

// RecomputeDepositAggregates re-sums every line item onto the deposit row.
// A line counts as reconciled when its reconciled flag is set or its status
// is Matched or Ignored.
func RecomputeDepositAggregates(tx *gorm.DB, depositId int, tenantId string) (Deposit, error) {
	var deposit Deposit
	err := utils.LockForUpdate(tx).
		Where("id = ? AND tenant_id = ?", depositId, tenantId).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return deposit, utils.ErrorRecordNotFound
	}
	if err != nil {
		return deposit, err
	}

	var lines []DepositLineItem
	if err := tx.Where("deposit_id = ? AND tenant_id = ?", depositId, tenantId).Find(&lines).Error; err != nil {
		return deposit, err
	}

	deposit.ItemsReconciled = 0
	deposit.ItemsUnreconciled = 0
	deposit.UsageAllocated = decimal.Zero
	deposit.UsageUnallocated = decimal.Zero
	deposit.CommissionAllocated = decimal.Zero
	deposit.CommissionUnallocated = decimal.Zero
	for _, line := range lines {
		if line.IsReconciled() || line.Status == DepositLineItemStatusMatched || line.Status == DepositLineItemStatusIgnored {
			deposit.ItemsReconciled++
		} else {
			deposit.ItemsUnreconciled++
		}
		deposit.UsageAllocated = deposit.UsageAllocated.Add(line.UsageAllocated)
		deposit.UsageUnallocated = deposit.UsageUnallocated.Add(line.UsageUnallocated)
		deposit.CommissionAllocated = deposit.CommissionAllocated.Add(line.CommissionAllocated)
		deposit.CommissionUnallocated = deposit.CommissionUnallocated.Add(line.CommissionUnallocated)
	}

	err = tx.Model(&Deposit{}).
		Where("id = ? AND tenant_id = ?", depositId, tenantId).
		Updates(map[string]interface{}{
			"items_reconciled":       deposit.ItemsReconciled,
			"items_unreconciled":     deposit.ItemsUnreconciled,
			"usage_allocated":        deposit.UsageAllocated,
			"usage_unallocated":      deposit.UsageUnallocated,
			"commission_allocated":   deposit.CommissionAllocated,
			"commission_unallocated": deposit.CommissionUnallocated,
		}).Error
	return deposit, err
}

// MarkDepositFinalized freezes the deposit, its line items and their Applied
// matches. Callers enforce the disputed-schedule policy before invoking.
func MarkDepositFinalized(tx *gorm.DB, depositId int, tenantId string, userId int) error {
	now := time.Now()
	err := tx.Model(&Deposit{}).
		Where("id = ? AND tenant_id = ?", depositId, tenantId).
		Updates(map[string]interface{}{
			"finalized":    true,
			"finalized_at": now,
			"finalized_by": userId,
		}).Error
	if err != nil {
		return err
	}
	err = tx.Model(&DepositLineItem{}).
		Where("deposit_id = ? AND tenant_id = ?", depositId, tenantId).
		Update("reconciled", true).Error
	if err != nil {
		return err
	}
	return tx.Model(&DepositLineMatch{}).
		Where("tenant_id = ? AND status = ? AND deposit_line_item_id IN (?)",
			tenantId, DepositLineMatchStatusApplied,
			tx.Model(&DepositLineItem{}).Select("id").
				Where("deposit_id = ? AND tenant_id = ?", depositId, tenantId)).
		Update("reconciled", true).Error
}
