package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/capex_backend/config"
)

// StagingCheckResult is the server-side re-validation of staged data, run
// after a load and before promotion. Errors block promotion; warnings do
// not.
type StagingCheckResult struct {
	ErrorCount   int      `json:"error_count"`
	WarningCount int      `json:"warning_count"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
}

// ValidateStagingData re-checks the staged batch against the store itself:
// cost rows must reference a staged project, and the batch must not collide
// with keys already archived for the site.
func ValidateStagingData(ctx context.Context, site string) (*StagingCheckResult, error) {
	if strings.TrimSpace(site) == "" {
		return nil, errors.New("site is required")
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("database is not available")
	}

	result := &StagingCheckResult{Errors: []string{}, Warnings: []string{}}

	// Orphan cost rows: staged costs whose (entity, project) has no staged
	// project row.
	var orphans []struct {
		EntityId  string
		ProjectId string
	}
	err := db.WithContext(ctx).Model(&CostStaging{}).
		Select("cost_staging.entity_id, cost_staging.project_id").
		Joins("LEFT JOIN project_staging p ON p.entity_id = cost_staging.entity_id AND p.project_id = cost_staging.project_id AND p.site = cost_staging.site").
		Where("cost_staging.site = ? AND p.id IS NULL", site).
		Distinct().
		Find(&orphans).Error
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		result.Errors = append(result.Errors,
			fmt.Sprintf("cost rows for entity %q project %q have no staged project row", o.EntityId, o.ProjectId))
	}

	// Staged keys already archived: promoting these would be a no-op at
	// archive time; the entry surface should have been reconciled first.
	var rearchived []struct {
		EntityId  string
		ProjectId string
	}
	err = db.WithContext(ctx).Model(&ProjectStaging{}).
		Select("project_staging.entity_id, project_staging.project_id").
		Joins("JOIN project_archive a ON a.entity_id = project_staging.entity_id AND a.project_id = project_staging.project_id AND a.site = project_staging.site").
		Where("project_staging.site = ?", site).
		Distinct().
		Find(&rearchived).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rearchived {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("entity %q project %q is already archived; run archive reconciliation", r.EntityId, r.ProjectId))
	}

	result.ErrorCount = len(result.Errors)
	result.WarningCount = len(result.Warnings)
	return result, nil
}
