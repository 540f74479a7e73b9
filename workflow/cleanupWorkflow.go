package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
)

// ReconcileOutcome distinguishes the informational endings from a real run.
type ReconcileOutcome string

const (
	OutcomeNoArchivedKeys ReconcileOutcome = "NoArchivedKeys"
	OutcomeNoMatches      ReconcileOutcome = "NoMatches"
	OutcomeCancelled      ReconcileOutcome = "Cancelled"
	OutcomeCompleted      ReconcileOutcome = "Completed"
)

// ReconcileResult reports one archive reconciliation run.
type ReconcileResult struct {
	Outcome      ReconcileOutcome `json:"outcome"`
	ArchivedKeys int              `json:"archived_keys"`
	Matches      int              `json:"matches"`
	Deleted      int              `json:"deleted"`
	Failed       int              `json:"failed"`
	Elapsed      time.Duration    `json:"elapsed"`
	Message      string           `json:"message"`
}

// ReconcileArchived removes entry-surface rows whose records the backing
// store confirms archived for the active site. Matching rows are deleted
// highest row first so earlier deletions never shift a row still pending
// deletion. Unlike submission, per-row failures are logged and skipped:
// reconciliation is idempotent and re-runnable.
func ReconcileArchived(ctx context.Context, surface sheet.RowSurface, confirm func(matches int) bool) (*ReconcileResult, error) {
	logger := config.GetLogger()
	started := time.Now()

	site, ok := utils.GetSiteFromContext(ctx)
	if !ok || site == "" {
		return nil, errors.New("site is required")
	}

	keys, err := queryArchivedKeys(ctx, site)
	if err != nil {
		config.LogError(logger, "cleanupWorkflow.go", "ReconcileArchived", "Querying archived keys", site, err)
		return nil, errors.New("could not read the archive for this site")
	}

	result := &ReconcileResult{ArchivedKeys: len(keys)}
	if len(keys) == 0 {
		result.Outcome = OutcomeNoArchivedKeys
		result.Message = fmt.Sprintf("No archived records exist for site %s; nothing to reconcile.", site)
		result.Elapsed = time.Since(started).Round(time.Millisecond)
		return result, nil
	}

	archived := make(map[string]bool, len(keys))
	for _, k := range keys {
		archived[k] = true
	}

	matches := matchArchivedRows(site, archived, surface)
	result.Matches = len(matches)
	if len(matches) == 0 {
		result.Outcome = OutcomeNoMatches
		result.Message = fmt.Sprintf("%d archived records exist for site %s but none are present on the entry surface.", len(keys), site)
		result.Elapsed = time.Since(started).Round(time.Millisecond)
		return result, nil
	}

	if confirm != nil && !confirm(len(matches)) {
		result.Outcome = OutcomeCancelled
		result.Message = fmt.Sprintf("Reconciliation cancelled; %d matched rows were left in place.", len(matches))
		result.Elapsed = time.Since(started).Round(time.Millisecond)
		return result, nil
	}

	result.Deleted, result.Failed = deleteBottomUp(surface, matches)
	result.Outcome = OutcomeCompleted
	result.Elapsed = time.Since(started).Round(time.Millisecond)
	if result.Failed > 0 {
		result.Message = fmt.Sprintf("Removed %d of %d archived rows for site %s in %s (%d rows could not be removed; see diagnostic log).",
			result.Deleted, result.Matches, site, result.Elapsed, result.Failed)
	} else {
		result.Message = fmt.Sprintf("Removed %d archived rows for site %s in %s.", result.Deleted, site, result.Elapsed)
	}
	config.LogInfo(logger, "cleanupWorkflow.go", "ReconcileArchived", result.Message)
	return result, nil
}

// matchArchivedRows scans the surface for rows whose composite key is in
// the archived set. Rows belonging to another site are never matched, even
// if the surface filter let them through.
func matchArchivedRows(site string, archived map[string]bool, surface sheet.RowSurface) []int {
	siteCol := sheet.FieldByName(sheet.FieldSite).Col
	entityCol := sheet.FieldByName(sheet.FieldEntityId).Col
	projectCol := sheet.FieldByName(sheet.FieldProjectId).Col

	var matches []int
	for _, row := range surface.DataRows() {
		rowSite := sheet.Coerce(surface.CellValue(row, siteCol), sheet.FieldString)
		if rowSite.Str == nil || !strings.EqualFold(*rowSite.Str, site) {
			continue
		}

		entity := sheet.Coerce(surface.CellValue(row, entityCol), sheet.FieldString)
		project := sheet.Coerce(surface.CellValue(row, projectCol), sheet.FieldString)
		if entity.Str == nil || project.Str == nil {
			continue
		}

		if archived[models.ArchiveKey(*entity.Str, *project.Str)] {
			matches = append(matches, row)
		}
	}
	return matches
}

// deleteBottomUp removes matched rows highest-first: deleting a row shifts
// everything below it up by one, so pending deletions must all sit above
// the last deleted row. Failures are logged and skipped.
func deleteBottomUp(surface sheet.RowSurface, matches []int) (deleted int, failed int) {
	logger := config.GetLogger()
	sorted := append([]int(nil), matches...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, row := range sorted {
		if err := surface.DeleteRow(row); err != nil {
			failed++
			config.LogError(logger, "cleanupWorkflow.go", "deleteBottomUp", "Deleting surface row", row, err)
			continue
		}
		deleted++
	}
	return deleted, failed
}
