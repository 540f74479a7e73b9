package models_test

import (
	"context"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"github.com/shopspring/decimal"
)

// These run without a database; the store queries must fail closed with an
// error instead of dereferencing a nil connection.

func TestQueryArchivedKeys_FailsClosedWithoutDatabase(t *testing.T) {
	_, err := models.QueryArchivedKeys(context.Background(), "PIF1")
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected a database-unavailable error, got %v", err)
	}
}

func TestValidateStagingData_FailsClosedWithoutDatabase(t *testing.T) {
	_, err := models.ValidateStagingData(context.Background(), "PIF1")
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected a database-unavailable error, got %v", err)
	}
}

func TestArchiveKey_Normalizes(t *testing.T) {
	if got := models.ArchiveKey("  a1 ", " p1"); got != "A1|P1" {
		t.Fatalf("expected A1|P1, got %q", got)
	}
}

func TestNewCostStaging_UppercasesIdentifiers(t *testing.T) {
	d := decimal.NewFromInt(1000)
	rec := &sheet.CostRecord{
		EntityId:       "pif001",
		ProjectId:      "prj01",
		Scenario:       sheet.ScenarioTarget,
		FiscalYear:     2026,
		RequestedValue: &d,
	}

	row := models.NewCostStaging(rec, "pif1")
	if row.EntityId != "PIF001" || row.ProjectId != "PRJ01" {
		t.Fatalf("cost keys must be uppercased like project keys: %q/%q", row.EntityId, row.ProjectId)
	}
	if row.Site != "PIF1" {
		t.Fatalf("site must be uppercased, got %q", row.Site)
	}
}

func TestNewProjectStaging_NormalizesKeys(t *testing.T) {
	entity, project, site := "pif001", "prj01", "pif1"
	rec := &sheet.ProjectRecord{
		EntityId:  &entity,
		ProjectId: &project,
		Site:      &site,
	}

	row := models.NewProjectStaging(rec)
	if row.EntityId != "PIF001" || row.ProjectId != "PRJ01" || row.Site != "PIF1" {
		t.Fatalf("keys not normalized: %q/%q/%q", row.EntityId, row.ProjectId, row.Site)
	}
	if row.LineItem != 1 {
		t.Fatalf("blank line item must default to 1, got %d", row.LineItem)
	}
}
