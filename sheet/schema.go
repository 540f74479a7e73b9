package sheet

// FieldKind is the declared type of an entry-surface field.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInt
	FieldDecimal
	FieldBool
	FieldDate
)

// FieldSpec describes one entry-surface field: its absolute column on the
// surface, its declared kind and the storage length ceiling. The extractor,
// the validation engine and the staging models all read limits from here;
// nothing else carries column positions or lengths.
type FieldSpec struct {
	Name     string
	Col      Column
	Kind     FieldKind
	MaxLen   int
	Required bool
}

const (
	FieldEntityId            = "entity_id"
	FieldProjectId           = "project_id"
	FieldLineItem            = "line_item"
	FieldStatus              = "status"
	FieldChangeType          = "change_type"
	FieldAccountingTreatment = "accounting_treatment"
	FieldCategory            = "category"
	FieldSeg                 = "seg"
	FieldOpco                = "opco"
	FieldSite                = "site"
	FieldStrategicRank       = "strategic_rank"
	FieldFundingProject      = "funding_project"
	FieldProjectName         = "project_name"
	FieldOriginalISD         = "original_isd"
	FieldRevisedISD          = "revised_isd"
	FieldMovingISDYear       = "moving_isd_year"
	FieldLcmIssue            = "lcm_issue"
	FieldJustification       = "justification"
	FieldPriorYearSpend      = "prior_year_spend"
	FieldArchiveFlag         = "archive_flag"
	FieldIncludeFlag         = "include_flag"
)

// ProjectSchema lists every scalar project field in surface order.
// Columns are absolute surface columns (1-based), NOT offsets into the
// extracted block. Lengths mirror the staging schema exactly.
var ProjectSchema = []FieldSpec{
	{Name: FieldEntityId, Col: 1, Kind: FieldString, MaxLen: 16},
	{Name: FieldProjectId, Col: 2, Kind: FieldString, MaxLen: 10, Required: true},
	{Name: FieldLineItem, Col: 3, Kind: FieldInt},
	{Name: FieldStatus, Col: 4, Kind: FieldString, MaxLen: 58},
	{Name: FieldChangeType, Col: 5, Kind: FieldString, MaxLen: 30, Required: true},
	{Name: FieldAccountingTreatment, Col: 6, Kind: FieldString, MaxLen: 30},
	{Name: FieldCategory, Col: 7, Kind: FieldString, MaxLen: 40},
	{Name: FieldSeg, Col: 8, Kind: FieldString, MaxLen: 8},
	{Name: FieldOpco, Col: 9, Kind: FieldString, MaxLen: 8},
	{Name: FieldSite, Col: 10, Kind: FieldString, MaxLen: 4},
	{Name: FieldStrategicRank, Col: 11, Kind: FieldInt},
	{Name: FieldFundingProject, Col: 12, Kind: FieldString, MaxLen: 10},
	{Name: FieldProjectName, Col: 13, Kind: FieldString, MaxLen: 100},
	{Name: FieldOriginalISD, Col: 14, Kind: FieldDate},
	{Name: FieldRevisedISD, Col: 15, Kind: FieldDate},
	{Name: FieldMovingISDYear, Col: 16, Kind: FieldInt},
	{Name: FieldLcmIssue, Col: 17, Kind: FieldString, MaxLen: 58},
	{Name: FieldJustification, Col: 18, Kind: FieldString, MaxLen: 192},
	{Name: FieldPriorYearSpend, Col: 19, Kind: FieldDecimal},
	{Name: FieldArchiveFlag, Col: 20, Kind: FieldBool},
	{Name: FieldIncludeFlag, Col: 21, Kind: FieldBool},
}

// KeyColumn designates the column whose non-blank value makes a row count
// as a record at all. Entity id, not project id: a row with a blank project
// id must still be extracted so validation can report the missing field.
var KeyColumn = FieldByName(FieldEntityId).Col

func FieldByName(name string) FieldSpec {
	for _, f := range ProjectSchema {
		if f.Name == name {
			return f
		}
	}
	return FieldSpec{}
}

// Scenario is one of the two parallel cost-projection tracks carried per
// project per fiscal year.
type Scenario string

const (
	ScenarioTarget   Scenario = "Target"
	ScenarioClosings Scenario = "Closings"
)

var Scenarios = []Scenario{ScenarioTarget, ScenarioClosings}

// CostYears is the number of fiscal years carried per scenario, starting at
// the current fiscal year.
const CostYears = 6

// costValuesPerYear: requested, current (approved), variance.
const costValuesPerYear = 3

// CostBlockStart is the absolute column of the first cost cell
// (Target, current fiscal year, requested value). Each scenario occupies
// CostYears*costValuesPerYear consecutive columns.
const CostBlockStart Column = 22

// CostColumns returns the absolute columns of the (requested, current,
// variance) cells for the given scenario and year offset (0..CostYears-1).
func CostColumns(scenario Scenario, yearOffset int) (requested, current, variance Column) {
	scenarioIdx := 0
	if scenario == ScenarioClosings {
		scenarioIdx = 1
	}
	base := CostBlockStart +
		Column(scenarioIdx*CostYears*costValuesPerYear) +
		Column(yearOffset*costValuesPerYear)
	return base, base + 1, base + 2
}
