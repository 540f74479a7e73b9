package workflow

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/shopspring/decimal"
)

// Integration tests run against a real MySQL instance (env from .env) and
// are gated behind INTEGRATION_TESTS=1. They use reserved ZZ* sites so they
// never touch real data.

var integrationOnce sync.Once

func setupIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run database integration tests")
	}
	integrationOnce.Do(func() {
		config.ConnectDatabaseWithRetry()
		if err := models.MigrateTables(); err != nil {
			t.Fatalf("migration failed: %v", err)
		}
	})
}

func cleanupSite(t *testing.T, site string) {
	t.Helper()
	db := config.GetDB()
	for _, model := range []any{&models.ProjectStaging{}, &models.CostStaging{}} {
		if err := db.Where("site = ?", site).Delete(model).Error; err != nil {
			t.Fatalf("cleanup of site %s failed: %v", site, err)
		}
	}
}

func cleanupInflight(t *testing.T, site string) {
	t.Helper()
	db := config.GetDB()
	for _, model := range []any{&models.ProjectInflight{}, &models.CostInflight{}} {
		if err := db.Where("site = ?", site).Delete(model).Error; err != nil {
			t.Fatalf("inflight cleanup of site %s failed: %v", site, err)
		}
	}
}

func dropBackupTables(t *testing.T, suffix string) {
	t.Helper()
	if suffix == "" {
		return
	}
	db := config.GetDB()
	for _, base := range []string{models.ProjectInflight{}.TableName(), models.CostInflight{}.TableName()} {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s_backup_%s", base, suffix)).Error; err != nil {
			t.Logf("could not drop backup %s_backup_%s: %v", base, suffix, err)
		}
	}
}

func integrationRecord(row int, entity string, site string) *sheet.ProjectRecord {
	d := decimal.NewFromInt(1000)
	var costs [sheet.CostYears]sheet.CostCell
	costs[0] = sheet.CostCell{Requested: &d}
	return &sheet.ProjectRecord{
		RowNumber:  row,
		EntityId:   strPtr(entity),
		ProjectId:  strPtr("PRJ01"),
		ChangeType: strPtr("New"),
		Site:       strPtr(site),
		Costs:      sheet.CostMatrix{sheet.ScenarioTarget: costs},
	}
}

func TestSubmitBatch_ReplacesPreviousLoad(t *testing.T) {
	setupIntegration(t)
	const site = "ZZ01"
	cleanupSite(t, site)
	defer cleanupSite(t, site)

	ctx := utils.SetSiteInContext(context.Background(), site)

	first := []*sheet.ProjectRecord{
		integrationRecord(2, "ZZTEST01", site),
		integrationRecord(3, "ZZTEST02", site),
	}
	if _, _, err := SubmitBatch(ctx, first, "first.xlsx"); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	second := []*sheet.ProjectRecord{integrationRecord(2, "ZZTEST03", site)}
	summary, _, err := SubmitBatch(ctx, second, "second.xlsx")
	if err != nil {
		t.Fatalf("second submission failed: %v", err)
	}
	if summary.ProjectRows != 1 {
		t.Fatalf("expected 1 staged project row, got %d", summary.ProjectRows)
	}

	// The second cycle replaces the first wholesale.
	var count int64
	db := config.GetDB()
	if err := db.Model(&models.ProjectStaging{}).Where("site = ?", site).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("staging must hold only the latest batch; found %d rows", count)
	}

	// Only the valued cost row lands; the 11 all-blank ones are skipped.
	if err := db.Model(&models.CostStaging{}).Where("site = ?", site).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 staged cost row, got %d", count)
	}
}

func intPtr(n int) *int { return &n }

func TestSubmitBatch_FailedInsertLeavesNothingStaged(t *testing.T) {
	setupIntegration(t)
	const site = "ZZ04"
	cleanupSite(t, site)
	defer cleanupSite(t, site)

	ctx := utils.SetSiteInContext(context.Background(), site)

	// Two line items of one project carrying the same (scenario, year) cost
	// cell collide on the cost staging unique key. The colliding insert
	// comes after both project rows and the first cost row have gone in, so
	// a partial load would be visible if the rollback were broken.
	a := integrationRecord(2, "ZZTEST04", site)
	b := integrationRecord(3, "ZZTEST04", site)
	b.LineItem = intPtr(2)

	if _, _, err := SubmitBatch(ctx, []*sheet.ProjectRecord{a, b}, "dup.xlsx"); err == nil {
		t.Fatal("expected the colliding cost key to fail the load")
	}

	db := config.GetDB()
	var count int64
	if err := db.Model(&models.ProjectStaging{}).Where("site = ?", site).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rollback must leave zero project rows visible, found %d", count)
	}
	if err := db.Model(&models.CostStaging{}).Where("site = ?", site).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rollback must leave zero cost rows visible, found %d", count)
	}
}

func TestCommitToInflight_RewritesSnapshotWholesale(t *testing.T) {
	setupIntegration(t)
	const site = "ZZ05"
	cleanupSite(t, site)
	cleanupInflight(t, site)
	defer cleanupSite(t, site)
	defer cleanupInflight(t, site)

	ctx := utils.SetSiteInContext(context.Background(), site)
	db := config.GetDB()

	first := []*sheet.ProjectRecord{
		integrationRecord(2, "ZZTEST05", site),
		integrationRecord(3, "ZZTEST06", site),
	}
	if _, _, err := SubmitBatch(ctx, first, "first.xlsx"); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	res1, err := CommitToInflight(ctx, "first.xlsx")
	if err != nil {
		t.Fatalf("first promotion failed: %v", err)
	}
	defer dropBackupTables(t, res1.BackupSuffix)
	if res1.ProjectRows != 2 {
		t.Fatalf("expected 2 promoted project rows, got %d", res1.ProjectRows)
	}

	var count int64
	if err := db.Model(&models.ProjectInflight{}).Where("site = ?", site).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("inflight must hold the promoted batch, found %d rows", count)
	}

	// Backup suffixes are second-granular; a same-second rerun would
	// collide with the first backup table.
	time.Sleep(time.Second)

	second := []*sheet.ProjectRecord{integrationRecord(2, "ZZTEST07", site)}
	if _, _, err := SubmitBatch(ctx, second, "second.xlsx"); err != nil {
		t.Fatalf("second submission failed: %v", err)
	}
	res2, err := CommitToInflight(ctx, "second.xlsx")
	if err != nil {
		t.Fatalf("second promotion failed: %v", err)
	}
	defer dropBackupTables(t, res2.BackupSuffix)

	var entities []string
	if err := db.Model(&models.ProjectInflight{}).Where("site = ?", site).Pluck("entity_id", &entities).Error; err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 || entities[0] != "ZZTEST07" {
		t.Fatalf("the second promotion must replace the snapshot wholesale, found %v", entities)
	}
}

func TestSubmitBatch_OtherSitesUntouched(t *testing.T) {
	setupIntegration(t)
	const siteA, siteB = "ZZ02", "ZZ03"
	cleanupSite(t, siteA)
	cleanupSite(t, siteB)
	defer cleanupSite(t, siteA)
	defer cleanupSite(t, siteB)

	ctxA := utils.SetSiteInContext(context.Background(), siteA)
	ctxB := utils.SetSiteInContext(context.Background(), siteB)

	if _, _, err := SubmitBatch(ctxA, []*sheet.ProjectRecord{integrationRecord(2, "ZZTESTA1", siteA)}, "a.xlsx"); err != nil {
		t.Fatalf("site A submission failed: %v", err)
	}
	if _, _, err := SubmitBatch(ctxB, []*sheet.ProjectRecord{integrationRecord(2, "ZZTESTB1", siteB)}, "b.xlsx"); err != nil {
		t.Fatalf("site B submission failed: %v", err)
	}

	var count int64
	db := config.GetDB()
	if err := db.Model(&models.ProjectStaging{}).Where("site = ?", siteA).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("site B's submission must not clear site A; found %d rows", count)
	}
}
