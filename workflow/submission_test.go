package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func cleanRecord(row int) *sheet.ProjectRecord {
	return &sheet.ProjectRecord{
		RowNumber:  row,
		EntityId:   strPtr("PIF001"),
		ProjectId:  strPtr("PRJ01"),
		ChangeType: strPtr("New"),
		Site:       strPtr("PIF1"),
	}
}

func TestSubmitBatch_RequiresSite(t *testing.T) {
	_, _, err := SubmitBatch(context.Background(), []*sheet.ProjectRecord{cleanRecord(2)}, "batch.xlsx")
	if err == nil || !strings.Contains(err.Error(), "site") {
		t.Fatalf("expected a site-required error, got %v", err)
	}
}

func TestSubmitBatch_BlocksOnValidationErrors(t *testing.T) {
	ctx := utils.SetSiteInContext(context.Background(), "PIF1")

	dirty := cleanRecord(2)
	dirty.ProjectId = nil

	summary, report, err := SubmitBatch(ctx, []*sheet.ProjectRecord{dirty}, "batch.xlsx")
	if !errors.Is(err, ErrValidationBlocked) {
		t.Fatalf("expected ErrValidationBlocked, got %v", err)
	}
	if summary != nil {
		t.Fatalf("a blocked submission must not produce a summary: %+v", summary)
	}
	if report == nil || report.Clean() {
		t.Fatal("the validation report must carry the findings")
	}
}

// mockStore installs a sqlmock-backed gorm connection as the workflow store
// for the duration of one test.
func mockStore(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	prev := getDB
	getDB = func() *gorm.DB { return gdb }
	t.Cleanup(func() { getDB = prev })
	return mock
}

func TestSubmitBatch_FailedInsertRollsBackAndNamesRecord(t *testing.T) {
	mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `project_staging`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `cost_staging`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `project_staging`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `project_staging`").WillReturnError(errors.New("Error 1062: Duplicate entry"))
	mock.ExpectRollback()

	ctx := utils.SetSiteInContext(context.Background(), "PIF1")
	a := cleanRecord(2)
	b := cleanRecord(5)
	b.ProjectId = strPtr("PRJ02")

	summary, report, err := SubmitBatch(ctx, []*sheet.ProjectRecord{a, b}, "batch.xlsx")
	if err == nil || !strings.Contains(err.Error(), "record 2 (surface row 5)") {
		t.Fatalf("the error must name the failing record and surface row, got %v", err)
	}
	if summary != nil {
		t.Fatalf("a rolled-back load must not produce a summary: %+v", summary)
	}
	if report == nil || !report.Clean() {
		t.Fatal("the clean validation report should still come back")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("the load must stop at the failing insert and roll back: %v", err)
	}
}

func TestSubmitBatch_FailsClosedWithoutDatabase(t *testing.T) {
	ctx := utils.SetSiteInContext(context.Background(), "PIF1")

	summary, report, err := SubmitBatch(ctx, []*sheet.ProjectRecord{cleanRecord(2)}, "batch.xlsx")
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected a database-unavailable error, got %v", err)
	}
	if summary != nil {
		t.Fatalf("no summary without a load: %+v", summary)
	}
	if report == nil || !report.Clean() {
		t.Fatal("the clean report should still be returned")
	}
}
