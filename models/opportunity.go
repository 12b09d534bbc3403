package models

import (
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Opportunity is a closed sale whose recurring revenue is tracked through
// revenue schedules. AccountIdVendor, CustomerIdVendor and OrderIdVendor are
// multi-value fields holding the raw identifiers vendors report on deposits.
type Opportunity struct {
	ID               int                   `gorm:"primary_key" json:"id"`
	TenantId         string                `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	VendorId         int                   `gorm:"index" json:"vendor_id"`
	Name             string                `gorm:"size:255;not null" json:"name" binding:"required"`
	AccountName      string                `gorm:"size:255;index" json:"account_name"`
	AccountIdVendor  string                `gorm:"type:text" json:"account_id_vendor"`
	CustomerIdVendor string                `gorm:"type:text" json:"customer_id_vendor"`
	OrderIdVendor    string                `gorm:"type:text" json:"order_id_vendor"`
	CloseDate        *time.Time            `json:"close_date"`
	Products         []*OpportunityProduct `gorm:"foreignKey:OpportunityId" json:"products,omitempty"`
	CreatedAt        time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// OpportunityProduct is one product line on an opportunity; each generates a
// series of revenue schedules over the contract term.
type OpportunityProduct struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	OpportunityId     int             `gorm:"index;not null" json:"opportunity_id" binding:"required"`
	ProductId         int             `gorm:"index;not null" json:"product_id" binding:"required"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"quantity"`
	ExpectedUsage     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"expected_usage"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"commission_percent"`
	TermMonths        int             `gorm:"default:0" json:"term_months"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOpportunity(db *gorm.DB, id int, tenantId string) (Opportunity, error) {
	return utils.FetchModelTx[Opportunity](db, id, tenantId)
}

func GetOpportunityProduct(db *gorm.DB, id int, tenantId string) (OpportunityProduct, error) {
	return utils.FetchModelTx[OpportunityProduct](db, id, tenantId)
}
