package sheet

import "time"

// BaseFiscalYear is the first fiscal year of the cost block, derived from
// the clock so the wide columns keep mapping correctly across calendar
// years.
func BaseFiscalYear(now time.Time) int {
	return now.Year()
}

// Unpivot reshapes one project record's wide cost cells into normalized
// cost rows: exactly CostYears rows per scenario, all-null rows included.
// Filtering is a staging decision, not the transformer's.
func Unpivot(rec *ProjectRecord, baseYear int) []*CostRecord {
	entityId := ""
	if rec.EntityId != nil {
		entityId = *rec.EntityId
	}
	projectId := ""
	if rec.ProjectId != nil {
		projectId = *rec.ProjectId
	}

	out := make([]*CostRecord, 0, len(Scenarios)*CostYears)
	for _, scenario := range Scenarios {
		cells := rec.Costs[scenario]
		for offset := 0; offset < CostYears; offset++ {
			out = append(out, &CostRecord{
				EntityId:       entityId,
				ProjectId:      projectId,
				Scenario:       scenario,
				FiscalYear:     baseYear + offset,
				RequestedValue: cells[offset].Requested,
				CurrentValue:   cells[offset].Current,
				VarianceValue:  cells[offset].Variance,
			})
		}
	}
	return out
}

// UnpivotAll transforms a whole extracted batch with one base year so every
// record in the batch shares the same year mapping.
func UnpivotAll(records []*ProjectRecord, baseYear int) []*CostRecord {
	out := make([]*CostRecord, 0, len(records)*len(Scenarios)*CostYears)
	for _, rec := range records {
		out = append(out, Unpivot(rec, baseYear)...)
	}
	return out
}

// Pivot reconstructs the wide cost matrix from normalized rows. It is the
// inverse of Unpivot for a single project and exists so the reshaping can be
// verified round-trip.
func Pivot(rows []*CostRecord, baseYear int) CostMatrix {
	matrix := make(CostMatrix, len(Scenarios))
	byScenario := make(map[Scenario][CostYears]CostCell, len(Scenarios))
	for _, row := range rows {
		offset := row.FiscalYear - baseYear
		if offset < 0 || offset >= CostYears {
			continue
		}
		cells := byScenario[row.Scenario]
		cells[offset] = CostCell{
			Requested: row.RequestedValue,
			Current:   row.CurrentValue,
			Variance:  row.VarianceValue,
		}
		byScenario[row.Scenario] = cells
	}
	for _, scenario := range Scenarios {
		matrix[scenario] = byScenario[scenario]
	}
	return matrix
}
