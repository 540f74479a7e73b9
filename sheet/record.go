package sheet

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectRecord is one extracted entry-surface row in typed form. Pointer
// fields carry NULL as nil; nothing here is validated yet.
type ProjectRecord struct {
	RowNumber int // absolute surface row the record came from

	EntityId            *string
	ProjectId           *string
	LineItem            *int
	Status              *string
	ChangeType          *string
	AccountingTreatment *string
	Category            *string
	Seg                 *string
	Opco                *string
	Site                *string
	StrategicRank       *int
	FundingProject      *string
	ProjectName         *string
	OriginalISD         *time.Time
	RevisedISD          *time.Time
	MovingISDYear       *int
	LcmIssue            *string
	Justification       *string
	PriorYearSpend      *decimal.Decimal
	ArchiveFlag         *bool
	IncludeFlag         *bool

	// Costs preserves the wide per-scenario/per-year cost cells; the unpivot
	// transformer reshapes them into normalized CostRecords.
	Costs CostMatrix

	// Fallbacks records fields whose cell could not be converted to the
	// declared kind (field name -> original cell text). The field itself is
	// NULL; the validation engine turns these into InvalidDataType errors.
	Fallbacks map[string]string
}

// CostCell carries the three value types of one (scenario, year) pair.
type CostCell struct {
	Requested *decimal.Decimal
	Current   *decimal.Decimal
	Variance  *decimal.Decimal
}

// CostMatrix indexes cost cells by scenario and year offset from the current
// fiscal year.
type CostMatrix map[Scenario][CostYears]CostCell

// CostRecord is one normalized (entity, project, scenario, year) cost row.
type CostRecord struct {
	EntityId       string
	ProjectId      string
	Scenario       Scenario
	FiscalYear     int
	RequestedValue *decimal.Decimal
	CurrentValue   *decimal.Decimal
	VarianceValue  *decimal.Decimal
}

// StringField returns the record's value for a string-kinded schema field.
// The validation engine walks the schema and reads values through this, so
// field limits and field storage can never disagree about which field is
// which.
func (r *ProjectRecord) StringField(name string) (*string, bool) {
	switch name {
	case FieldEntityId:
		return r.EntityId, true
	case FieldProjectId:
		return r.ProjectId, true
	case FieldStatus:
		return r.Status, true
	case FieldChangeType:
		return r.ChangeType, true
	case FieldAccountingTreatment:
		return r.AccountingTreatment, true
	case FieldCategory:
		return r.Category, true
	case FieldSeg:
		return r.Seg, true
	case FieldOpco:
		return r.Opco, true
	case FieldSite:
		return r.Site, true
	case FieldFundingProject:
		return r.FundingProject, true
	case FieldProjectName:
		return r.ProjectName, true
	case FieldLcmIssue:
		return r.LcmIssue, true
	case FieldJustification:
		return r.Justification, true
	}
	return nil, false
}

// EffectiveLineItem applies the blank-defaults-to-1 rule.
func (r *ProjectRecord) EffectiveLineItem() int {
	if r.LineItem == nil {
		return 1
	}
	return *r.LineItem
}
