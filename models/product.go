package models

import (
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable service/SKU. ProductNameVendor and PartNumberVendor
// hold the raw identifiers vendors use for the same product on their deposit
// files; both are multi-value fields (comma-separated canonical form).
type Product struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	VendorId          int             `gorm:"index" json:"vendor_id"`
	Name              string          `gorm:"size:255;not null" json:"name" binding:"required"`
	PartNumber        string          `gorm:"size:100" json:"part_number"`
	ProductNameVendor string          `gorm:"type:text" json:"product_name_vendor"`
	PartNumberVendor  string          `gorm:"type:text" json:"part_number_vendor"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"commission_percent"`
	IsBonusLike       *bool           `gorm:"not null;default:false" json:"is_bonus_like"`
	IsFlexGenerated   *bool           `gorm:"not null;default:false" json:"is_flex_generated"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BonusLike reports whether the product is commission-only with no natural
// quantity, which rules out the FlexProduct resolution for its schedules.
func (p *Product) BonusLike() bool {
	return p.IsBonusLike != nil && *p.IsBonusLike
}

func GetProduct(db *gorm.DB, id int, tenantId string) (Product, error) {
	return utils.FetchModelTx[Product](db, id, tenantId)
}
