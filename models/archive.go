package models

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
)

// ArchiveKeySeparator joins entity and project ids into a composite key.
const ArchiveKeySeparator = "|"

// ArchiveKey builds the composite reconciliation key for one record.
func ArchiveKey(entityId, projectId string) string {
	return strings.ToUpper(strings.TrimSpace(entityId)) +
		ArchiveKeySeparator +
		strings.ToUpper(strings.TrimSpace(projectId))
}

// QueryArchivedKeys returns every composite archive key present for the
// site. Archive-table membership alone is the archived-confirmation signal;
// no status re-check is performed.
func QueryArchivedKeys(ctx context.Context, site string) ([]string, error) {
	if strings.TrimSpace(site) == "" {
		return nil, errors.New("site is required")
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("database is not available")
	}

	var pairs []struct {
		EntityId  string
		ProjectId string
	}
	err := db.WithContext(ctx).Model(&ProjectArchive{}).
		Where("site = ?", site).
		Distinct("entity_id", "project_id").
		Find(&pairs).Error
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, ArchiveKey(p.EntityId, p.ProjectId))
	}
	// Distinct pairs can collapse to the same key after uppercasing.
	return utils.UniqueSlice(keys), nil
}
