package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"bitbucket.org/mmdatafocus/capex_backend/validation"
)

// Store access is indirected through package variables so the workflow
// logic can be exercised against mock stores.
var (
	getDB             = config.GetDB
	queryArchivedKeys = models.QueryArchivedKeys
)

// SubmissionSummary reports one completed staging load.
type SubmissionSummary struct {
	ProjectRows     int           `json:"project_rows"`
	CostRows        int           `json:"cost_rows"`
	SkippedCostRows int           `json:"skipped_cost_rows"`
	Elapsed         time.Duration `json:"elapsed"`
	Message         string        `json:"message"`
}

// ErrValidationBlocked is returned when a batch with findings reaches the
// submission pipeline. The report, not this error, carries the detail.
var ErrValidationBlocked = errors.New("validation errors must be resolved before submission")

// SubmitBatch loads a validated batch into the staging tables: truncate
// both tables for the site, insert every record through typed parameterized
// creates, commit only if every insert succeeded. Any failure rolls the
// whole batch back; there are no partial loads.
func SubmitBatch(ctx context.Context, records []*sheet.ProjectRecord, artifact string) (*SubmissionSummary, *validation.Report, error) {
	logger := config.GetLogger()
	started := time.Now()

	site, ok := utils.GetSiteFromContext(ctx)
	if !ok || site == "" {
		return nil, nil, errors.New("site is required")
	}

	// Validation gates submission even if the caller already ran it.
	report := validation.ValidateBatch(records)
	if !report.Clean() {
		return nil, report, ErrValidationBlocked
	}

	costs := sheet.UnpivotAll(records, sheet.BaseFiscalYear(time.Now()))

	release, err := utils.SiteLock(ctx, site, "SubmissionLock", "submissionWorkflow.go", "SubmitBatch")
	if err != nil {
		return nil, report, err
	}
	defer release()

	db := getDB()
	if db == nil {
		return nil, report, errors.New("database is not available")
	}

	tx := db.Begin()
	if tx.Error != nil {
		config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Beginning transaction", site, tx.Error)
		return nil, report, errors.New("could not start the submission")
	}

	// Staging is truncated per site on every submission cycle.
	if err := tx.WithContext(ctx).Where("site = ?", site).Delete(&models.ProjectStaging{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Clearing project staging", site, err)
		return nil, report, errors.New("could not clear the staging area")
	}
	if err := tx.WithContext(ctx).Where("site = ?", site).Delete(&models.CostStaging{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Clearing cost staging", site, err)
		return nil, report, errors.New("could not clear the staging area")
	}

	summary := &SubmissionSummary{}

	for i, rec := range records {
		row := models.NewProjectStaging(rec)
		if row.Site == "" {
			row.Site = site
		}
		if err := models.InsertProjectStaging(tx.WithContext(ctx), row); err != nil {
			tx.Rollback()
			config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Inserting project row", rec.RowNumber, err)
			return nil, report, fmt.Errorf("submission failed at record %d (surface row %d); no rows were loaded", i+1, rec.RowNumber)
		}
		summary.ProjectRows++
	}

	for i, cost := range costs {
		row := models.NewCostStaging(cost, site)
		if row.AllNull() {
			summary.SkippedCostRows++
			continue
		}
		if err := models.InsertCostStaging(tx.WithContext(ctx), row); err != nil {
			tx.Rollback()
			config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Inserting cost row", i, err)
			return nil, report, fmt.Errorf("submission failed at cost record %d; no rows were loaded", i+1)
		}
		summary.CostRows++
	}

	if err := models.CreateAuditLog(tx.WithContext(ctx), models.AuditActionSubmit, artifact, summary.ProjectRows); err != nil {
		tx.Rollback()
		config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Writing audit log", artifact, err)
		return nil, report, errors.New("could not record the submission audit entry")
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "submissionWorkflow.go", "SubmitBatch", "Committing transaction", site, err)
		return nil, report, errors.New("the submission could not be committed; no rows were loaded")
	}

	summary.Elapsed = time.Since(started).Round(time.Millisecond)
	summary.Message = fmt.Sprintf("Staged %d project rows and %d cost rows (%d all-blank cost rows skipped) in %s.",
		summary.ProjectRows, summary.CostRows, summary.SkippedCostRows, summary.Elapsed)
	config.LogInfo(logger, "submissionWorkflow.go", "SubmitBatch", summary.Message)
	return summary, report, nil
}
