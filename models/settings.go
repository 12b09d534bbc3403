package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Setting is one tenant-scoped configuration row. Values are JSON-encoded so
// a single table holds fractions, booleans and enum strings alike.
type Setting struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index:idx_setting_tenant_key,unique;not null;size:36" json:"tenant_id"`
	Key       string    `gorm:"index:idx_setting_tenant_key,unique;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	SettingKeyVarianceTolerance             = "varianceTolerance"
	SettingKeyIncludeFutureSchedulesDefault = "includeFutureSchedulesDefault"
	SettingKeyEngineMode                    = "engineMode"
	SettingKeyFinalizeDisputedPolicy        = "finalizeDisputedDepositsPolicy"
)

func IsKnownSettingKey(key string) bool {
	switch key {
	case SettingKeyVarianceTolerance, SettingKeyIncludeFutureSchedulesDefault,
		SettingKeyEngineMode, SettingKeyFinalizeDisputedPolicy:
		return true
	}
	return false
}

// TenantSettings is the typed view of the key/value rows, resolved once per
// request with explicit defaults. Never parse Setting rows ad hoc elsewhere.
type TenantSettings struct {
	VarianceTolerance             decimal.Decimal        `json:"variance_tolerance"`
	IncludeFutureSchedulesDefault bool                   `json:"include_future_schedules_default"`
	EngineMode                    EngineMode             `json:"engine_mode"`
	FinalizeDisputedPolicy        FinalizeDisputedPolicy `json:"finalize_disputed_deposits_policy"`
}

func defaultTenantSettings() TenantSettings {
	return TenantSettings{
		VarianceTolerance:             decimal.NewFromFloat(0.05),
		IncludeFutureSchedulesDefault: false,
		EngineMode:                    EngineModeHierarchical,
		FinalizeDisputedPolicy:        FinalizePolicyBlockAll,
	}
}

func tenantSettingsCacheKey(tenantId string) string {
	return "tenantSettings:" + tenantId
}

// ResolveTenantSettings loads the tenant's settings, redis first then DB.
// Unknown keys are ignored; missing or malformed values keep their defaults.
func ResolveTenantSettings(ctx context.Context, tenantId string) (TenantSettings, error) {
	settings := defaultTenantSettings()
	if tenantId == "" {
		return settings, errors.New("tenant id is required")
	}

	exists, err := config.GetRedisObject(tenantSettingsCacheKey(tenantId), &settings)
	if err != nil {
		return settings, err
	}
	if exists {
		settings.normalize()
		return settings, nil
	}

	db := config.GetDB()
	var rows []Setting
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Find(&rows).Error; err != nil {
		return settings, err
	}
	for _, row := range rows {
		switch row.Key {
		case SettingKeyVarianceTolerance:
			var v decimal.Decimal
			if json.Unmarshal([]byte(row.Value), &v) == nil {
				settings.VarianceTolerance = v
			}
		case SettingKeyIncludeFutureSchedulesDefault:
			var v bool
			if json.Unmarshal([]byte(row.Value), &v) == nil {
				settings.IncludeFutureSchedulesDefault = v
			}
		case SettingKeyEngineMode:
			var v string
			if json.Unmarshal([]byte(row.Value), &v) == nil {
				settings.EngineMode = EngineMode(v)
			}
		case SettingKeyFinalizeDisputedPolicy:
			var v string
			if json.Unmarshal([]byte(row.Value), &v) == nil {
				settings.FinalizeDisputedPolicy = FinalizeDisputedPolicy(v)
			}
		}
	}
	settings.normalize()

	if err := config.SetRedisObject(tenantSettingsCacheKey(tenantId), &settings, 5*time.Minute); err != nil {
		return settings, err
	}
	return settings, nil
}

func (s *TenantSettings) normalize() {
	one := decimal.NewFromInt(1)
	if s.VarianceTolerance.LessThan(decimal.Zero) {
		s.VarianceTolerance = decimal.Zero
	}
	if s.VarianceTolerance.GreaterThan(one) {
		s.VarianceTolerance = one
	}
	if s.EngineMode != EngineModeLegacy && s.EngineMode != EngineModeHierarchical {
		s.EngineMode = EngineModeHierarchical
	}
	switch s.FinalizeDisputedPolicy {
	case FinalizePolicyBlockAll, FinalizePolicyAllowManagerAdmin, FinalizePolicyAllowAll:
	default:
		s.FinalizeDisputedPolicy = FinalizePolicyBlockAll
	}
}

// SaveTenantSetting upserts one setting row and drops the cached view.
func SaveTenantSetting(ctx context.Context, tenantId string, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	db := config.GetDB()
	row := Setting{TenantId: tenantId, Key: key, Value: string(raw)}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(tenantSettingsCacheKey(tenantId))
}
