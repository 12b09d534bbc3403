package models

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/utils"
)

// Document is an uploaded attachment (bank statement, remittance advice)
// linked polymorphically to a deposit or schedule.
type Document struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TenantId      string    `gorm:"index;not null;size:36" json:"tenant_id"`
	DocumentUrl   string    `gorm:"size:500;not null" json:"document_url"`
	ThumbnailUrl  string    `gorm:"size:500" json:"thumbnail_url"`
	FileName      string    `gorm:"size:255" json:"file_name"`
	ReferenceType string    `gorm:"size:50;index:idx_document_reference" json:"reference_type"`
	ReferenceID   int       `gorm:"index:idx_document_reference" json:"reference_id"`
	UploadedBy    int       `json:"uploaded_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AttachDepositDocument uploads the file to object storage and records the
// document row against the deposit.
func AttachDepositDocument(ctx context.Context, depositId int, tenantId string, fileHeader *multipart.FileHeader) (Document, error) {
	db := config.GetDB()
	if _, err := GetDeposit(db.WithContext(ctx), depositId, tenantId); err != nil {
		return Document{}, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Document{}, err
	}
	defer file.Close()

	extension := strings.ToLower(filepath.Ext(fileHeader.Filename))
	objectName := tenantId + "/deposits/" + utils.GenerateUniqueFilename() + extension
	url, err := utils.UploadFileToGCS(ctx, objectName, file)
	if err != nil {
		return Document{}, err
	}
	thumbnailUrl := ""
	if extension == ".jpg" || extension == ".jpeg" || extension == ".png" {
		thumbnailUrl = url + ".thumb.jpg"
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	document := Document{
		TenantId:      tenantId,
		DocumentUrl:   url,
		ThumbnailUrl:  thumbnailUrl,
		FileName:      fileHeader.Filename,
		ReferenceType: string(ReconReferenceTypeDeposit),
		ReferenceID:   depositId,
		UploadedBy:    userId,
	}
	err = db.WithContext(ctx).Create(&document).Error
	return document, err
}

// ListDocuments returns the attachments for one entity.
func ListDocuments(ctx context.Context, tenantId string, referenceType string, referenceId int) ([]Document, error) {
	db := config.GetDB()
	var documents []Document
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantId, referenceType, referenceId).
		Order("created_at desc").Find(&documents).Error
	return documents, err
}
