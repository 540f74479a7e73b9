package models

import (
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectFields is the scalar shape shared by the staging, inflight and
// archive project tables. Column sizes mirror sheet.ProjectSchema exactly.
type ProjectFields struct {
	EntityId            string           `gorm:"type:varchar(16);not null;uniqueIndex:uk_project,priority:1" json:"entity_id"`
	ProjectId           string           `gorm:"type:varchar(10);not null;uniqueIndex:uk_project,priority:2" json:"project_id"`
	LineItem            int              `gorm:"not null;default:1;uniqueIndex:uk_project,priority:3" json:"line_item"`
	Status              string           `gorm:"type:varchar(58)" json:"status"`
	ChangeType          string           `gorm:"type:varchar(30);not null" json:"change_type"`
	AccountingTreatment string           `gorm:"type:varchar(30)" json:"accounting_treatment"`
	Category            string           `gorm:"type:varchar(40)" json:"category"`
	Seg                 string           `gorm:"type:varchar(8)" json:"seg"`
	Opco                string           `gorm:"type:varchar(8)" json:"opco"`
	Site                string           `gorm:"type:varchar(4);index" json:"site"`
	StrategicRank       *int             `json:"strategic_rank"`
	FundingProject      string           `gorm:"type:varchar(10)" json:"funding_project"`
	ProjectName         string           `gorm:"type:varchar(100)" json:"project_name"`
	OriginalISD         *time.Time       `json:"original_isd"`
	RevisedISD          *time.Time       `json:"revised_isd"`
	MovingISDYear       *int             `json:"moving_isd_year"`
	LcmIssue            string           `gorm:"type:varchar(58)" json:"lcm_issue"`
	Justification       string           `gorm:"type:varchar(192)" json:"justification"`
	PriorYearSpend      *decimal.Decimal `gorm:"type:decimal(18,2)" json:"prior_year_spend"`
	ArchiveFlag         *bool            `json:"archive_flag"`
	IncludeFlag         *bool            `json:"include_flag"`
}

// ProjectStaging is the transient landing table, truncated and reloaded on
// every submission cycle.
type ProjectStaging struct {
	ID int `gorm:"primary_key" json:"id"`
	ProjectFields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProjectStaging) TableName() string { return "project_staging" }

// ProjectInflight is the current working snapshot of not-yet-archived
// records. Rewritten wholesale on each promotion cycle.
type ProjectInflight struct {
	ID int `gorm:"primary_key" json:"id"`
	ProjectFields
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
}

func (ProjectInflight) TableName() string { return "project_inflight" }

// ProjectArchive rows are permanent: written once on approval, never
// mutated, only read back for reconciliation.
type ProjectArchive struct {
	ID int `gorm:"primary_key" json:"id"`
	ProjectFields
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	ArchivedAt  time.Time `gorm:"not null" json:"archived_at"`
}

func (ProjectArchive) TableName() string { return "project_archive" }

// ApprovedStatuses are the inflight statuses eligible for archiving.
var ApprovedStatuses = []string{"Approved", "Dispositioned"}

// NewProjectStaging maps a validated sheet record into the staging shape.
// The caller owns the transaction; every scalar lands on a column whose
// declared type and size comes from the same schema the validator checked
// against, so nothing can silently truncate here.
func NewProjectStaging(rec *sheet.ProjectRecord) *ProjectStaging {
	row := &ProjectStaging{}
	f := &row.ProjectFields
	f.EntityId = strings.ToUpper(utils.DereferencePtr(rec.EntityId))
	f.ProjectId = strings.ToUpper(utils.DereferencePtr(rec.ProjectId))
	f.LineItem = rec.EffectiveLineItem()
	f.Status = utils.DereferencePtr(rec.Status)
	f.ChangeType = utils.DereferencePtr(rec.ChangeType)
	f.AccountingTreatment = utils.DereferencePtr(rec.AccountingTreatment)
	f.Category = utils.DereferencePtr(rec.Category)
	f.Seg = utils.DereferencePtr(rec.Seg)
	f.Opco = utils.DereferencePtr(rec.Opco)
	f.Site = strings.ToUpper(utils.DereferencePtr(rec.Site))
	f.StrategicRank = rec.StrategicRank
	f.FundingProject = utils.DereferencePtr(rec.FundingProject)
	f.ProjectName = utils.DereferencePtr(rec.ProjectName)
	f.OriginalISD = rec.OriginalISD
	f.RevisedISD = rec.RevisedISD
	f.MovingISDYear = rec.MovingISDYear
	f.LcmIssue = utils.DereferencePtr(rec.LcmIssue)
	f.Justification = utils.DereferencePtr(rec.Justification)
	f.PriorYearSpend = rec.PriorYearSpend
	f.ArchiveFlag = rec.ArchiveFlag
	f.IncludeFlag = rec.IncludeFlag
	return row
}

// InsertProjectStaging is the typed staging insert. A failure reports which
// record could not be loaded, not just a generic database error.
func InsertProjectStaging(tx *gorm.DB, row *ProjectStaging) error {
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("project staging insert failed for entity %q project %q line %d: %w",
			row.EntityId, row.ProjectId, row.LineItem, err)
	}
	return nil
}
