package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"gorm.io/gorm"
)

// autoFillTarget describes one field eligible for propagation from a deposit
// line onto the linked opportunity or product.
type autoFillTarget struct {
	entityName string
	field      string
	column     string
	current    string
	candidate  string
}

// Allow-listed fields per entity. Undo refuses anything outside these sets.
var autoFillAllowedFields = map[string]map[string]string{
	"Opportunity": {
		"account_id_vendor":  "account_id_vendor",
		"customer_id_vendor": "customer_id_vendor",
		"order_id_vendor":    "order_id_vendor",
	},
	"Product": {
		"product_name_vendor": "product_name_vendor",
		"part_number_vendor":  "part_number_vendor",
	},
}

// AutoFillFromDepositMatch copies vendor identifiers from the matched line
// onto the schedule's opportunity and product, but only into fields that are
// currently empty. Returns the list of filled field names. Each entity
// written gets its own audit entry carrying per-field snapshots so the write
// is reversible.
func AutoFillFromDepositMatch(tx *gorm.DB, line models.DepositLineItem, schedule models.RevenueSchedule) ([]string, error) {
	if config.AutoFillDisabled() {
		return nil, nil
	}

	opportunity, err := models.GetOpportunity(tx, schedule.OpportunityId, schedule.TenantId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}
	product, productErr := models.GetProduct(tx, schedule.ProductId, schedule.TenantId)
	if productErr != nil && !errors.Is(productErr, utils.ErrorRecordNotFound) {
		return nil, productErr
	}

	var filled []string
	if err == nil {
		targets := []autoFillTarget{
			{"Opportunity", "account_id_vendor", "account_id_vendor", opportunity.AccountIdVendor, line.AccountIdVendor},
			{"Opportunity", "customer_id_vendor", "customer_id_vendor", opportunity.CustomerIdVendor, line.CustomerIdVendor},
			{"Opportunity", "order_id_vendor", "order_id_vendor", opportunity.OrderIdVendor, line.OrderIdVendor},
		}
		fields, err := writeAutoFill(tx, "Opportunity", opportunity.ID, schedule.TenantId, targets)
		if err != nil {
			return nil, err
		}
		filled = append(filled, fields...)
	}
	if productErr == nil {
		targets := []autoFillTarget{
			{"Product", "product_name_vendor", "product_name_vendor", product.ProductNameVendor, line.ProductNameVendor},
			{"Product", "part_number_vendor", "part_number_vendor", product.PartNumberVendor, line.PartNumberVendor},
		}
		fields, err := writeAutoFill(tx, "Product", product.ID, schedule.TenantId, targets)
		if err != nil {
			return nil, err
		}
		filled = append(filled, fields...)
	}
	return filled, nil
}

// writeAutoFill performs the empty-check/canonicalize/write cycle for one
// entity and audits the result. A non-empty target field is never touched.
func writeAutoFill(tx *gorm.DB, entityName string, entityId int, tenantId string, targets []autoFillTarget) ([]string, error) {
	updates := map[string]interface{}{}
	previous := map[string]string{}
	next := map[string]string{}
	var fields []string

	for _, target := range targets {
		if !utils.IsEmptyMultiValue(target.current) {
			continue
		}
		canonical := utils.CanonicalizeMultiValue(target.candidate)
		if canonical == "" {
			continue
		}
		updates[target.column] = canonical
		previous[target.field] = target.current
		next[target.field] = canonical
		fields = append(fields, target.field)
	}
	if len(updates) == 0 {
		return nil, nil
	}

	var err error
	switch entityName {
	case "Opportunity":
		err = tx.Model(&models.Opportunity{}).
			Where("id = ? AND tenant_id = ?", entityId, tenantId).Updates(updates).Error
	case "Product":
		err = tx.Model(&models.Product{}).
			Where("id = ? AND tenant_id = ?", entityId, tenantId).Updates(updates).Error
	default:
		err = fmt.Errorf("unsupported auto-fill entity: %s", entityName)
	}
	if err != nil {
		return nil, err
	}

	_, err = models.CreateAuditLog(tx, entityName, entityId, models.AuditActionAutoFill,
		previous, next, models.AuditMetadata{Fields: fields})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

var (
	ErrorNotUndoable    = errors.New("audit entry is not an undoable auto-fill")
	ErrorUndoEntityGone = errors.New("target entity no longer exists")
)

// UndoAutoFill reverses one auto-fill audit entry. Every recorded field must
// still hold the value the audit wrote; any external change aborts the whole
// undo with a conflict naming the field. The reversal itself is audited and
// references the original entry.
func UndoAutoFill(ctx context.Context, auditLogId int) (*models.AuditLog, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	entry, err := undoAutoFillInTx(tx, tenantId, auditLogId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func undoAutoFillInTx(tx *gorm.DB, tenantId string, auditLogId int) (*models.AuditLog, error) {
	log, err := models.GetAuditLog(tx, auditLogId, tenantId)
	if err != nil {
		return nil, err
	}
	meta := log.ParseMetadata()
	if meta.Action != models.AuditActionAutoFill {
		return nil, ErrorNotUndoable
	}
	allowed, ok := autoFillAllowedFields[log.EntityName]
	if !ok {
		return nil, ErrorNotUndoable
	}
	previous, next, err := log.ParseSnapshots()
	if err != nil {
		return nil, err
	}

	current, err := readEntityFields(tx, log.EntityName, log.EntityId, tenantId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	for field, wrote := range next {
		column, ok := allowed[field]
		if !ok {
			return nil, ErrorNotUndoable
		}
		if current[field] != wrote {
			return nil, utils.ConflictError("field %s was modified after auto-fill and cannot be undone", field)
		}
		updates[column] = previous[field]
	}
	if len(updates) == 0 {
		return nil, ErrorNotUndoable
	}

	switch log.EntityName {
	case "Opportunity":
		err = tx.Model(&models.Opportunity{}).
			Where("id = ? AND tenant_id = ?", log.EntityId, tenantId).Updates(updates).Error
	case "Product":
		err = tx.Model(&models.Product{}).
			Where("id = ? AND tenant_id = ?", log.EntityId, tenantId).Updates(updates).Error
	}
	if err != nil {
		return nil, err
	}

	entry, err := models.CreateAuditLog(tx, log.EntityName, log.EntityId, models.AuditActionUndoAutoFill,
		next, previous, models.AuditMetadata{
			Fields:        meta.Fields,
			OriginalLogId: log.ID,
		})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// readEntityFields snapshots the undoable fields of the target entity.
func readEntityFields(tx *gorm.DB, entityName string, entityId int, tenantId string) (map[string]string, error) {
	switch entityName {
	case "Opportunity":
		opportunity, err := models.GetOpportunity(tx, entityId, tenantId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, ErrorUndoEntityGone
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"account_id_vendor":  opportunity.AccountIdVendor,
			"customer_id_vendor": opportunity.CustomerIdVendor,
			"order_id_vendor":    opportunity.OrderIdVendor,
		}, nil
	case "Product":
		product, err := models.GetProduct(tx, entityId, tenantId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, ErrorUndoEntityGone
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"product_name_vendor": product.ProductNameVendor,
			"part_number_vendor":  product.PartNumberVendor,
		}, nil
	}
	return nil, ErrorNotUndoable
}
