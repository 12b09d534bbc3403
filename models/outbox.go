package models

import (
	"encoding/json"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReconEventRecord is the transactional outbox row. Workflow operations
// queue events inside their own transaction; the dispatcher publishes them
// to Pub/Sub after commit, so an event never outruns the data it describes.
type ReconEventRecord struct {
	ID               int                `gorm:"primary_key" json:"id"`
	EventId          string             `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	TenantId         string             `gorm:"index;not null;size:36" json:"tenant_id"`
	ReferenceType    ReconReferenceType `gorm:"size:50;not null;index:idx_outbox_reference" json:"reference_type"`
	ReferenceId      int                `gorm:"not null;index:idx_outbox_reference" json:"reference_id"`
	Action           AuditAction        `gorm:"size:50;not null" json:"action"`
	Payload          string             `gorm:"type:text" json:"payload"`
	CorrelationId    string             `gorm:"size:36" json:"correlation_id"`
	PublishStatus    string             `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts  int                `gorm:"default:0" json:"publish_attempts"`
	LastPublishError *string            `gorm:"type:text" json:"last_publish_error"`
	NextAttemptAt    *time.Time         `json:"next_attempt_at"`
	LockedAt         *time.Time         `json:"locked_at"`
	LockedBy         *string            `gorm:"size:36" json:"locked_by"`
	PubSubMessageId  *string            `gorm:"size:100" json:"pub_sub_message_id"`
	PublishedAt      *time.Time         `json:"published_at"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (ReconEventRecord) TableName() string {
	return "recon_event_outbox"
}

// QueueReconEvent writes an outbox row in the caller's transaction. Tenant
// and correlation identity come from the transaction's context.
func QueueReconEvent(tx *gorm.DB, tenantId string, referenceType ReconReferenceType,
	referenceId int, action AuditAction, payload interface{}, correlationId string) error {

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := ReconEventRecord{
		EventId:       uuid.NewString(),
		TenantId:      tenantId,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		Action:        action,
		Payload:       string(raw),
		CorrelationId: correlationId,
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.Create(&record).Error
}

// ToReconEvent converts the outbox row into the Pub/Sub wire event.
func (r ReconEventRecord) ToReconEvent() config.ReconEvent {
	return config.ReconEvent{
		ID:            r.ID,
		TenantId:      r.TenantId,
		OccurredAt:    r.CreatedAt,
		ReferenceId:   r.ReferenceId,
		ReferenceType: string(r.ReferenceType),
		Action:        string(r.Action),
		Payload:       []byte(r.Payload),
		CorrelationId: r.CorrelationId,
	}
}
