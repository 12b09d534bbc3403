package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"gorm.io/gorm"
)

// AuditLog is the append-only record behind every mutating operation. Rows
// are never updated or deleted; undo writes a counter-entry referencing the
// original. PreviousValues/NewValues hold JSON field snapshots, Metadata
// always carries the action tag plus operation-specific detail.
type AuditLog struct {
	ID             int         `gorm:"primary_key" json:"id"`
	TenantId       string      `gorm:"index;not null;size:36" json:"tenant_id"`
	EntityName     string      `gorm:"size:100;not null;index:idx_audit_entity" json:"entity_name"`
	EntityId       int         `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action         AuditAction `gorm:"size:50;not null;index" json:"action"`
	PreviousValues string      `gorm:"type:text" json:"previous_values"`
	NewValues      string      `gorm:"type:text" json:"new_values"`
	Metadata       string      `gorm:"type:text" json:"metadata"`
	UserId         int         `gorm:"index" json:"user_id"`
	UserName       string      `gorm:"size:100" json:"user_name"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

// AuditMetadata is the common shape of the Metadata column. The Action tag is
// duplicated inside metadata so undo can verify it without trusting the
// column alone.
type AuditMetadata struct {
	Action        AuditAction            `json:"action"`
	Fields        []string               `json:"fields,omitempty"`
	OriginalLogId int                    `json:"original_log_id,omitempty"`
	Detail        map[string]interface{} `json:"detail,omitempty"`
}

// CreateAuditLog writes one entry inside the caller's transaction. User
// identity comes from the transaction's context.
func CreateAuditLog(tx *gorm.DB, entityName string, entityId int, action AuditAction,
	previous interface{}, next interface{}, metadata AuditMetadata) (AuditLog, error) {

	ctx := tx.Statement.Context
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return AuditLog{}, errors.New("tenant id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	if metadata.Action == "" {
		metadata.Action = action
	}
	prevRaw, _ := json.Marshal(previous)
	nextRaw, _ := json.Marshal(next)
	metaRaw, _ := json.Marshal(metadata)

	log := AuditLog{
		TenantId:       tenantId,
		EntityName:     entityName,
		EntityId:       entityId,
		Action:         action,
		PreviousValues: string(prevRaw),
		NewValues:      string(nextRaw),
		Metadata:       string(metaRaw),
		UserId:         userId,
		UserName:       userName,
	}
	err := tx.Create(&log).Error
	return log, err
}

func GetAuditLog(db *gorm.DB, id int, tenantId string) (AuditLog, error) {
	return utils.FetchModelTx[AuditLog](db, id, tenantId)
}

// ParseMetadata decodes the Metadata column; a malformed column yields the
// zero value rather than an error so old rows stay readable.
func (a *AuditLog) ParseMetadata() AuditMetadata {
	var meta AuditMetadata
	_ = json.Unmarshal([]byte(a.Metadata), &meta)
	return meta
}

// ParseSnapshots decodes the previous/new field snapshots.
func (a *AuditLog) ParseSnapshots() (previous map[string]string, next map[string]string, err error) {
	previous = map[string]string{}
	next = map[string]string{}
	if a.PreviousValues != "" {
		if err = json.Unmarshal([]byte(a.PreviousValues), &previous); err != nil {
			return nil, nil, err
		}
	}
	if a.NewValues != "" {
		if err = json.Unmarshal([]byte(a.NewValues), &next); err != nil {
			return nil, nil, err
		}
	}
	return previous, next, nil
}

// ListAuditLogs returns the newest entries for one entity.
func ListAuditLogs(db *gorm.DB, tenantId string, entityName string, entityId int, limit int) ([]AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []AuditLog
	err := db.Where("tenant_id = ? AND entity_name = ? AND entity_id = ?", tenantId, entityName, entityId).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, err
}
