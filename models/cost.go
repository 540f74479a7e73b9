package models

import (
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostFields is the normalized cost row shared by the staging, inflight and
// archive cost tables: one row per (entity, project, scenario, fiscal year).
type CostFields struct {
	EntityId       string           `gorm:"type:varchar(16);not null;uniqueIndex:uk_cost,priority:1" json:"entity_id"`
	ProjectId      string           `gorm:"type:varchar(10);not null;uniqueIndex:uk_cost,priority:2" json:"project_id"`
	Scenario       string           `gorm:"type:varchar(10);not null;uniqueIndex:uk_cost,priority:3" json:"scenario"`
	FiscalYear     int              `gorm:"not null;uniqueIndex:uk_cost,priority:4" json:"fiscal_year"`
	Site           string           `gorm:"type:varchar(4);index" json:"site"`
	RequestedValue *decimal.Decimal `gorm:"type:decimal(18,2)" json:"requested_value"`
	CurrentValue   *decimal.Decimal `gorm:"type:decimal(18,2)" json:"current_value"`
	VarianceValue  *decimal.Decimal `gorm:"type:decimal(18,2)" json:"variance_value"`
}

type CostStaging struct {
	ID int `gorm:"primary_key" json:"id"`
	CostFields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CostStaging) TableName() string { return "cost_staging" }

type CostInflight struct {
	ID int `gorm:"primary_key" json:"id"`
	CostFields
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
}

func (CostInflight) TableName() string { return "cost_inflight" }

type CostArchive struct {
	ID int `gorm:"primary_key" json:"id"`
	CostFields
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	ArchivedAt  time.Time `gorm:"not null" json:"archived_at"`
}

func (CostArchive) TableName() string { return "cost_archive" }

// NewCostStaging maps one normalized cost record into the staging shape.
// Identifiers are uppercased the same way NewProjectStaging uppercases them,
// so cost keys always join back to their project rows regardless of the
// store's collation.
func NewCostStaging(rec *sheet.CostRecord, site string) *CostStaging {
	row := &CostStaging{}
	row.EntityId = strings.ToUpper(rec.EntityId)
	row.ProjectId = strings.ToUpper(rec.ProjectId)
	row.Scenario = string(rec.Scenario)
	row.FiscalYear = rec.FiscalYear
	row.Site = strings.ToUpper(site)
	row.RequestedValue = rec.RequestedValue
	row.CurrentValue = rec.CurrentValue
	row.VarianceValue = rec.VarianceValue
	return row
}

// AllNull reports whether the row carries no values at all. The submission
// pipeline skips such rows; the unpivot transformer still emits them.
func (c *CostFields) AllNull() bool {
	return c.RequestedValue == nil && c.CurrentValue == nil && c.VarianceValue == nil
}

// InsertCostStaging is the typed cost staging insert.
func InsertCostStaging(tx *gorm.DB, row *CostStaging) error {
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("cost staging insert failed for entity %q project %q %s FY%d: %w",
			row.EntityId, row.ProjectId, row.Scenario, row.FiscalYear, err)
	}
	return nil
}
