package models

import (
	"context"
	"fmt"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/utils"
	"gorm.io/gorm"
)

// Vendor is the distributor/supplier a deposit originates from. Line items
// reference vendors by name as imported; VendorId is set when resolved.
// ContactPhone is stored in E.164.
type Vendor struct {
	ID           int       `gorm:"primary_key" json:"id"`
	TenantId     string    `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	Name         string    `gorm:"size:100;not null;index" json:"name" binding:"required"`
	ContactName  string    `gorm:"size:100" json:"contact_name"`
	ContactEmail string    `gorm:"size:255" json:"contact_email"`
	ContactPhone string    `gorm:"size:30" json:"contact_phone"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetVendor(db *gorm.DB, id int, tenantId string) (Vendor, error) {
	return utils.FetchModelTx[Vendor](db, id, tenantId)
}

// SaveVendor creates or updates a vendor. The contact phone is validated and
// normalized before the write; an unparseable phone rejects the whole save.
func SaveVendor(ctx context.Context, vendor *Vendor) error {
	phone, err := utils.NormalizePhoneNumber(vendor.ContactPhone, utils.DefaultPhoneRegion)
	if err != nil {
		return fmt.Errorf("contact_phone: %w", err)
	}
	vendor.ContactPhone = phone

	db := config.GetDB().WithContext(ctx)
	if vendor.ID > 0 {
		return db.Model(&Vendor{}).
			Where("id = ? AND tenant_id = ?", vendor.ID, vendor.TenantId).
			Updates(map[string]interface{}{
				"name":          vendor.Name,
				"contact_name":  vendor.ContactName,
				"contact_email": vendor.ContactEmail,
				"contact_phone": vendor.ContactPhone,
				"is_active":     vendor.IsActive,
			}).Error
	}
	return db.Create(vendor).Error
}

func ListVendors(tenantId string, name string) ([]Vendor, error) {
	db := config.GetDB()
	var vendors []Vendor
	query := db.Where("tenant_id = ?", tenantId)
	if name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	err := query.Order("name asc").Find(&vendors).Error
	return vendors, err
}
