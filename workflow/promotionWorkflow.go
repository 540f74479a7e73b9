package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"gorm.io/gorm"
)

// projectColumns / costColumns are the scalar column lists copied between
// lifecycle tables. ids and stamp columns are excluded on purpose.
const projectColumns = "entity_id, project_id, line_item, status, change_type, accounting_treatment, " +
	"category, seg, opco, site, strategic_rank, funding_project, project_name, original_isd, " +
	"revised_isd, moving_isd_year, lcm_issue, justification, prior_year_spend, archive_flag, include_flag"

const costColumns = "entity_id, project_id, scenario, fiscal_year, site, requested_value, current_value, variance_value"

// PromotionResult reports one lifecycle transition.
type PromotionResult struct {
	ProjectRows  int           `json:"project_rows"`
	CostRows     int           `json:"cost_rows"`
	BackupSuffix string        `json:"backup_suffix,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	Message      string        `json:"message"`
}

// BackupSuffix produces the timestamped suffix for inflight backup tables.
// It is always system-generated and always purely numeric; identifier
// construction refuses anything else.
func BackupSuffix(now time.Time) string {
	return now.Format("20060102150405")
}

// backupTableName builds "<base>_backup_<suffix>" after checking the suffix
// is numeric-only. The suffix is the only interpolated part of any
// promotion identifier.
func backupTableName(base string, suffix string) (string, error) {
	if !utils.IsAllDigits(suffix) {
		return "", fmt.Errorf("backup suffix %q is not purely numeric", suffix)
	}
	return fmt.Sprintf("%s_backup_%s", base, suffix), nil
}

// CommitToInflight moves the staged batch into the inflight snapshot:
// backup the current inflight tables, then atomically clear and reload them
// with a submission timestamp. A failure leaves the previous snapshot
// intact.
func CommitToInflight(ctx context.Context, artifact string) (*PromotionResult, error) {
	logger := config.GetLogger()
	started := time.Now()

	site, ok := utils.GetSiteFromContext(ctx)
	if !ok || site == "" {
		return nil, errors.New("site is required")
	}

	release, err := utils.SiteLock(ctx, site, "PromotionLock", "promotionWorkflow.go", "CommitToInflight")
	if err != nil {
		return nil, err
	}
	defer release()

	db := getDB()
	if db == nil {
		return nil, errors.New("database is not available")
	}

	// Backups are DDL and cannot live inside the transaction; they run
	// first so a later failure still leaves a copy of the old snapshot.
	suffix := BackupSuffix(time.Now())
	for _, base := range []string{models.ProjectInflight{}.TableName(), models.CostInflight{}.TableName()} {
		backup, err := backupTableName(base, suffix)
		if err != nil {
			return nil, err
		}
		stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE site = ?", backup, base)
		if err := db.WithContext(ctx).Exec(stmt, site).Error; err != nil {
			config.LogError(logger, "promotionWorkflow.go", "CommitToInflight", "Creating inflight backup", backup, err)
			return nil, errors.New("could not back up the current working snapshot")
		}
	}

	result := &PromotionResult{BackupSuffix: suffix}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE site = ?", models.ProjectInflight{}.TableName()), site).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE site = ?", models.CostInflight{}.TableName()), site).Error; err != nil {
			return err
		}

		res := tx.WithContext(ctx).Exec(fmt.Sprintf(
			"INSERT INTO %s (%s, submitted_at) SELECT %s, NOW() FROM %s WHERE site = ?",
			models.ProjectInflight{}.TableName(), projectColumns, projectColumns, models.ProjectStaging{}.TableName()), site)
		if res.Error != nil {
			return res.Error
		}
		result.ProjectRows = int(res.RowsAffected)

		res = tx.WithContext(ctx).Exec(fmt.Sprintf(
			"INSERT INTO %s (%s, submitted_at) SELECT %s, NOW() FROM %s WHERE site = ?",
			models.CostInflight{}.TableName(), costColumns, costColumns, models.CostStaging{}.TableName()), site)
		if res.Error != nil {
			return res.Error
		}
		result.CostRows = int(res.RowsAffected)

		return models.CreateAuditLog(tx.WithContext(ctx), models.AuditActionInflight, artifact, result.ProjectRows)
	})
	if err != nil {
		config.LogError(logger, "promotionWorkflow.go", "CommitToInflight", "Promoting staging to inflight", site, err)
		return nil, fmt.Errorf("promotion to inflight failed after staging %d project rows; the previous snapshot is unchanged", result.ProjectRows)
	}

	result.Elapsed = time.Since(started).Round(time.Millisecond)
	result.Message = fmt.Sprintf("Promoted %d project rows and %d cost rows to inflight (backup %s) in %s.",
		result.ProjectRows, result.CostRows, suffix, result.Elapsed)
	config.LogInfo(logger, "promotionWorkflow.go", "CommitToInflight", result.Message)
	return result, nil
}

// ArchiveApprovedRecords copies every inflight row whose status is in the
// approved set into the archive with an approval timestamp. The archive key
// is unique, so reruns never duplicate rows.
func ArchiveApprovedRecords(ctx context.Context, artifact string) (*PromotionResult, error) {
	logger := config.GetLogger()
	started := time.Now()

	site, ok := utils.GetSiteFromContext(ctx)
	if !ok || site == "" {
		return nil, errors.New("site is required")
	}

	release, err := utils.SiteLock(ctx, site, "PromotionLock", "promotionWorkflow.go", "ArchiveApprovedRecords")
	if err != nil {
		return nil, err
	}
	defer release()

	db := getDB()
	if db == nil {
		return nil, errors.New("database is not available")
	}

	result := &PromotionResult{}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Exec(fmt.Sprintf(
			"INSERT IGNORE INTO %s (%s, submitted_at, archived_at) "+
				"SELECT %s, submitted_at, NOW() FROM %s WHERE site = ? AND status IN ?",
			models.ProjectArchive{}.TableName(), projectColumns, projectColumns, models.ProjectInflight{}.TableName()),
			site, models.ApprovedStatuses)
		if res.Error != nil {
			return res.Error
		}
		result.ProjectRows = int(res.RowsAffected)

		res = tx.WithContext(ctx).Exec(fmt.Sprintf(
			"INSERT IGNORE INTO %s (%s, submitted_at, archived_at) "+
				"SELECT c.entity_id, c.project_id, c.scenario, c.fiscal_year, c.site, c.requested_value, c.current_value, c.variance_value, c.submitted_at, NOW() "+
				"FROM %s c WHERE c.site = ? AND EXISTS ("+
				"SELECT 1 FROM %s p WHERE p.entity_id = c.entity_id AND p.project_id = c.project_id AND p.site = c.site AND p.status IN ?)",
			models.CostArchive{}.TableName(), costColumns, models.CostInflight{}.TableName(), models.ProjectInflight{}.TableName()),
			site, models.ApprovedStatuses)
		if res.Error != nil {
			return res.Error
		}
		result.CostRows = int(res.RowsAffected)

		return models.CreateAuditLog(tx.WithContext(ctx), models.AuditActionArchive, artifact, result.ProjectRows)
	})
	if err != nil {
		config.LogError(logger, "promotionWorkflow.go", "ArchiveApprovedRecords", "Archiving approved records", site, err)
		return nil, errors.New("archiving failed; the archive is unchanged")
	}

	result.Elapsed = time.Since(started).Round(time.Millisecond)
	result.Message = fmt.Sprintf("Archived %d project rows and %d cost rows in %s.",
		result.ProjectRows, result.CostRows, result.Elapsed)
	config.LogInfo(logger, "promotionWorkflow.go", "ArchiveApprovedRecords", result.Message)
	return result, nil
}
