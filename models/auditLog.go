package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records one successful pipeline transition: who promoted what,
// from which artifact, and how many rows moved.
type AuditLog struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Site          string    `gorm:"type:varchar(4);index;not null" json:"site"`
	Action        string    `gorm:"size:30;not null" json:"action"`
	Artifact      string    `gorm:"size:100" json:"artifact"`
	RowCount      int       `gorm:"not null" json:"row_count"`
	UserId        int       `gorm:"index" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CorrelationId string    `gorm:"size:36" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }

const (
	AuditActionSubmit   = "Submit"
	AuditActionInflight = "CommitToInflight"
	AuditActionArchive  = "ArchiveApproved"
)

// createAuditLog writes one audit entry inside the caller's transaction so
// the entry commits or rolls back together with the step it records.
func createAuditLog(tx *gorm.DB, action string, artifact string, rowCount int) error {
	ctx := tx.Statement.Context

	site, ok := utils.GetSiteFromContext(ctx)
	if !ok || site == "" {
		return errors.New("site is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	entry := AuditLog{
		Site:          site,
		Action:        action,
		Artifact:      artifact,
		RowCount:      rowCount,
		UserId:        userId,
		UserName:      userName,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&entry).Error
}

// CreateAuditLog is the exported form for the workflow package.
func CreateAuditLog(tx *gorm.DB, action string, artifact string, rowCount int) error {
	return createAuditLog(tx, action, artifact, rowCount)
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
