package models

import (
	"context"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/utils"
)

type Tenant struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Timezone  string    `gorm:"size:64" json:"timezone"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetTenantById(ctx context.Context, tenantId string) (*Tenant, error) {
	var tenant Tenant
	// tenants table has no tenant_id column; cache per id
	cacheKey := "tenant:" + tenantId
	exists, err := config.GetRedisObject(cacheKey, &tenant)
	if err != nil {
		return nil, err
	}
	if exists {
		return &tenant, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).First(&tenant, "id = ?", tenantId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject(cacheKey, &tenant, time.Hour); err != nil {
		return nil, err
	}
	return &tenant, nil
}
