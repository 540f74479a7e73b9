package sheet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func TestUnpivot_EmitsExactlyTwelveRows(t *testing.T) {
	rec := &ProjectRecord{
		EntityId:  strPtr("PIF001"),
		ProjectId: strPtr("PRJ01"),
		Costs:     CostMatrix{},
	}

	rows := Unpivot(rec, 2026)
	if len(rows) != 12 {
		t.Fatalf("expected 12 cost rows, got %d", len(rows))
	}

	// 2 scenarios x 6 consecutive years, all-null rows included.
	seen := map[string]bool{}
	for _, row := range rows {
		if row.FiscalYear < 2026 || row.FiscalYear > 2031 {
			t.Fatalf("fiscal year %d out of range", row.FiscalYear)
		}
		key := string(row.Scenario) + ":" + time.Date(row.FiscalYear, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
		if seen[key] {
			t.Fatalf("duplicate scenario/year pair %s", key)
		}
		seen[key] = true
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 distinct scenario/year pairs, got %d", len(seen))
	}
}

func TestUnpivot_SingleValueScenario(t *testing.T) {
	// Target requested value for the current year only; everything else
	// blank. Expect 6 Target rows (one carrying 1000) plus 6 Closings rows.
	var targetCells [CostYears]CostCell
	targetCells[0] = CostCell{Requested: decPtr("1000")}

	rec := &ProjectRecord{
		EntityId:  strPtr("PIF001"),
		ProjectId: strPtr("PRJ01"),
		Costs:     CostMatrix{ScenarioTarget: targetCells},
	}

	rows := Unpivot(rec, 2026)

	var target, closings, withValue int
	for _, row := range rows {
		switch row.Scenario {
		case ScenarioTarget:
			target++
		case ScenarioClosings:
			closings++
		}
		if row.RequestedValue != nil {
			withValue++
			if row.Scenario != ScenarioTarget || row.FiscalYear != 2026 {
				t.Fatalf("value landed on wrong row: %+v", row)
			}
			if row.RequestedValue.String() != "1000" {
				t.Fatalf("expected 1000, got %s", row.RequestedValue)
			}
		}
	}
	if target != 6 || closings != 6 {
		t.Fatalf("expected 6 Target and 6 Closings rows, got %d and %d", target, closings)
	}
	if withValue != 1 {
		t.Fatalf("expected exactly one valued row, got %d", withValue)
	}
}

func TestUnpivot_PivotRoundTrip(t *testing.T) {
	var targetCells, closingsCells [CostYears]CostCell
	targetCells[0] = CostCell{Requested: decPtr("1000"), Current: decPtr("900"), Variance: decPtr("-100")}
	targetCells[4] = CostCell{Current: decPtr("50")}
	closingsCells[2] = CostCell{Variance: decPtr("7.25")}

	rec := &ProjectRecord{
		EntityId:  strPtr("PIF001"),
		ProjectId: strPtr("PRJ01"),
		Costs: CostMatrix{
			ScenarioTarget:   targetCells,
			ScenarioClosings: closingsCells,
		},
	}

	back := Pivot(Unpivot(rec, 2026), 2026)

	for _, scenario := range Scenarios {
		for offset := 0; offset < CostYears; offset++ {
			want := rec.Costs[scenario][offset]
			got := back[scenario][offset]
			if !decEqual(want.Requested, got.Requested) ||
				!decEqual(want.Current, got.Current) ||
				!decEqual(want.Variance, got.Variance) {
				t.Fatalf("%s offset %d: round trip mismatch: want %+v got %+v", scenario, offset, want, got)
			}
		}
	}
}

func decEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func TestBaseFiscalYear_TracksClock(t *testing.T) {
	if y := BaseFiscalYear(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)); y != 2026 {
		t.Fatalf("expected 2026, got %d", y)
	}
	if y := BaseFiscalYear(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)); y != 2031 {
		t.Fatalf("expected 2031, got %d", y)
	}
}
