package models

import (
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DepositLineItem is one row of a deposit file: the usage and commission the
// vendor paid for one account/product, plus the raw identifiers the vendor
// reported. Allocation fields always satisfy allocated + unallocated = total.
type DepositLineItem struct {
	ID                    int                   `gorm:"primary_key" json:"id"`
	TenantId              string                `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	DepositId             int                   `gorm:"index;not null" json:"deposit_id" binding:"required"`
	VendorName            string                `gorm:"size:100;index" json:"vendor_name"`
	AccountIdVendor       string                `gorm:"type:text" json:"account_id_vendor"`
	CustomerIdVendor      string                `gorm:"type:text" json:"customer_id_vendor"`
	OrderIdVendor         string                `gorm:"type:text" json:"order_id_vendor"`
	ProductNameVendor     string                `gorm:"type:text" json:"product_name_vendor"`
	PartNumberVendor      string                `gorm:"type:text" json:"part_number_vendor"`
	AccountNameVendor     string                `gorm:"size:255" json:"account_name_vendor"`
	Usage                 decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"usage"`
	Commission            decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"commission"`
	UsageAllocated        decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"usage_allocated"`
	UsageUnallocated      decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"usage_unallocated"`
	CommissionAllocated   decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"commission_allocated"`
	CommissionUnallocated decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"commission_unallocated"`
	Status                DepositLineItemStatus `gorm:"type:enum('Unmatched','Suggested','Matched','PartiallyMatched','Ignored');not null;default:'Unmatched'" json:"status"`
	Reconciled            *bool                 `gorm:"not null;default:false" json:"reconciled"`
	CreatedAt             time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrorLineReconciled = errors.New("line item is reconciled and cannot be modified")

func (l *DepositLineItem) IsReconciled() bool {
	return l.Reconciled != nil && *l.Reconciled
}

// HasNegativeAmount reports whether the line itself is a chargeback row.
func (l *DepositLineItem) HasNegativeAmount() bool {
	return l.Usage.IsNegative() || l.Commission.IsNegative()
}

// GetDepositLineItem fetches a line item scoped to the tenant. Callers inside
// a transaction pass tx so the read observes uncommitted writes.
func GetDepositLineItem(db *gorm.DB, id int, tenantId string) (DepositLineItem, error) {
	return utils.FetchModelTx[DepositLineItem](db, id, tenantId)
}

// GetDepositLineItemForUpdate locks the row for the rest of the transaction.
func GetDepositLineItemForUpdate(tx *gorm.DB, id int, tenantId string) (DepositLineItem, error) {
	var line DepositLineItem
	err := utils.LockForUpdate(tx).
		Where("id = ? AND tenant_id = ?", id, tenantId).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return line, utils.ErrorRecordNotFound
	}
	return line, err
}

// RecomputeLineAllocation re-sums every Applied match of the line and rewrites
// the allocation fields and status. Unallocated is clamped at zero so an
// over-allocation never produces a negative remainder. Recomputed from source
// each time rather than incremented in place.
func RecomputeLineAllocation(tx *gorm.DB, lineId int, tenantId string) (DepositLineItem, error) {
	line, err := GetDepositLineItemForUpdate(tx, lineId, tenantId)
	if err != nil {
		return line, err
	}
	if line.IsReconciled() {
		return line, ErrorLineReconciled
	}

	type allocationSum struct {
		UsageTotal      decimal.Decimal
		CommissionTotal decimal.Decimal
		MatchCount      int64
	}
	var sum allocationSum
	err = tx.Model(&DepositLineMatch{}).
		Select("COALESCE(SUM(usage_amount),0) as usage_total, COALESCE(SUM(commission_amount),0) as commission_total, COUNT(*) as match_count").
		Where("deposit_line_item_id = ? AND tenant_id = ? AND status = ?", lineId, tenantId, DepositLineMatchStatusApplied).
		Scan(&sum).Error
	if err != nil {
		return line, err
	}
	var suggestedCount int64
	err = tx.Model(&DepositLineMatch{}).
		Where("deposit_line_item_id = ? AND tenant_id = ? AND status = ?", lineId, tenantId, DepositLineMatchStatusSuggested).
		Count(&suggestedCount).Error
	if err != nil {
		return line, err
	}

	line.UsageAllocated = sum.UsageTotal
	line.CommissionAllocated = sum.CommissionTotal
	line.UsageUnallocated = utils.DecimalMax(line.Usage.Sub(sum.UsageTotal), decimal.Zero)
	line.CommissionUnallocated = utils.DecimalMax(line.Commission.Sub(sum.CommissionTotal), decimal.Zero)
	line.Status = resolveLineStatus(line, sum.MatchCount, suggestedCount)

	err = tx.Model(&DepositLineItem{}).
		Where("id = ? AND tenant_id = ?", lineId, tenantId).
		Updates(map[string]interface{}{
			"usage_allocated":        line.UsageAllocated,
			"usage_unallocated":      line.UsageUnallocated,
			"commission_allocated":   line.CommissionAllocated,
			"commission_unallocated": line.CommissionUnallocated,
			"status":                 line.Status,
		}).Error
	return line, err
}

// resolveLineStatus derives the line status from its allocation totals.
// Matched requires full coverage on both usage and commission. A line with
// only Suggested matches, none yet applied, reports Suggested.
func resolveLineStatus(line DepositLineItem, matchCount, suggestedCount int64) DepositLineItemStatus {
	if line.Status == DepositLineItemStatusIgnored {
		return DepositLineItemStatusIgnored
	}
	if matchCount == 0 {
		if suggestedCount > 0 {
			return DepositLineItemStatusSuggested
		}
		return DepositLineItemStatusUnmatched
	}
	usageCovered := line.UsageAllocated.GreaterThanOrEqual(line.Usage)
	commissionCovered := line.CommissionAllocated.GreaterThanOrEqual(line.Commission)
	if usageCovered && commissionCovered {
		return DepositLineItemStatusMatched
	}
	return DepositLineItemStatusPartiallyMatched
}
