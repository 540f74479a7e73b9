package sheet

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractProjects reads every non-empty row of the grid into a typed
// ProjectRecord. A row counts as non-empty when its key column holds a
// non-blank value. Extraction never fails on bad scalar input: unparseable
// cells become NULL and the validation engine reports them afterwards.
func ExtractProjects(g *Grid) []*ProjectRecord {
	records := make([]*ProjectRecord, 0, g.RowCount())

	for i := 0; i < g.RowCount(); i++ {
		key := Coerce(g.Cell(i, KeyColumn), FieldString)
		if key.Kind == CoercedNull {
			continue
		}

		rec := &ProjectRecord{RowNumber: g.RowNumber(i)}
		for _, f := range ProjectSchema {
			c := Coerce(g.Cell(i, f.Col), f.Kind)
			assignField(rec, f, c)
			if c.Kind == CoercedFallback && f.Kind != FieldString {
				if rec.Fallbacks == nil {
					rec.Fallbacks = map[string]string{}
				}
				rec.Fallbacks[f.Name] = c.Raw
			}
		}
		rec.Costs = extractCosts(g, i)
		records = append(records, rec)
	}

	return records
}

func assignField(rec *ProjectRecord, f FieldSpec, c Coerced) {
	switch f.Name {
	case FieldEntityId:
		rec.EntityId = coercedString(c)
	case FieldProjectId:
		rec.ProjectId = coercedString(c)
	case FieldLineItem:
		rec.LineItem = c.Int
	case FieldStatus:
		rec.Status = coercedString(c)
	case FieldChangeType:
		rec.ChangeType = coercedString(c)
	case FieldAccountingTreatment:
		rec.AccountingTreatment = coercedString(c)
	case FieldCategory:
		rec.Category = coercedString(c)
	case FieldSeg:
		rec.Seg = coercedString(c)
	case FieldOpco:
		rec.Opco = coercedString(c)
	case FieldSite:
		rec.Site = coercedString(c)
	case FieldStrategicRank:
		rec.StrategicRank = c.Int
	case FieldFundingProject:
		rec.FundingProject = coercedString(c)
	case FieldProjectName:
		rec.ProjectName = coercedString(c)
	case FieldOriginalISD:
		rec.OriginalISD = coercedDate(c)
	case FieldRevisedISD:
		rec.RevisedISD = coercedDate(c)
	case FieldMovingISDYear:
		rec.MovingISDYear = c.Int
	case FieldLcmIssue:
		rec.LcmIssue = coercedString(c)
	case FieldJustification:
		rec.Justification = coercedString(c)
	case FieldPriorYearSpend:
		rec.PriorYearSpend = coercedDecimal(c)
	case FieldArchiveFlag:
		rec.ArchiveFlag = c.Bool
	case FieldIncludeFlag:
		rec.IncludeFlag = c.Bool
	}
}

// coercedString accepts fallback text for string fields; for every other
// kind the fallback reads as NULL.
func coercedString(c Coerced) *string {
	if c.Kind == CoercedFallback {
		raw := c.Raw
		return &raw
	}
	return c.Str
}

func coercedDecimal(c Coerced) *decimal.Decimal {
	return c.Dec
}

func coercedDate(c Coerced) *time.Time {
	return c.Time
}

func extractCosts(g *Grid, i int) CostMatrix {
	matrix := make(CostMatrix, len(Scenarios))
	for _, scenario := range Scenarios {
		var cells [CostYears]CostCell
		for offset := 0; offset < CostYears; offset++ {
			reqCol, curCol, varCol := CostColumns(scenario, offset)
			cells[offset] = CostCell{
				Requested: Coerce(g.Cell(i, reqCol), FieldDecimal).Dec,
				Current:   Coerce(g.Cell(i, curCol), FieldDecimal).Dec,
				Variance:  Coerce(g.Cell(i, varCol), FieldDecimal).Dec,
			}
		}
		matrix[scenario] = cells
	}
	return matrix
}
