package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
	"github.com/yukikurage/timesheet-api/internal/storage"
)

const (
	reportSheet       = "Rapport"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportDateLayout  = "02/01/2006"
	reportStampLayout = "02/01/2006 15:04"
)

// ReportActivity is one row of the activities table.
type ReportActivity struct {
	Type        string
	Name        string
	Periodicity string
	StartDate   time.Time
	EndDate     time.Time
	TotalHours  float64
	Status      string
}

// ReportData is the input of a spreadsheet export.
type ReportData struct {
	Title      string
	Content    string
	Period     string
	Author     string
	CreatedAt  *time.Time
	Activities []ReportActivity
}

// ExportResult is a rendered report. ArchiveKey is empty when no archive
// is configured or archiving failed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	ArchiveKey  string
}

// ExportService renders HR timesheets as spreadsheets.
type ExportService struct {
	repo    *repository.Repository
	policy  *policy.Resolver
	archive storage.Archive
	log     *zap.Logger
	now     func() time.Time
}

// NewExportService creates an ExportService. archive may be nil.
func NewExportService(repo *repository.Repository, resolver *policy.Resolver, archive storage.Archive, log *zap.Logger) *ExportService {
	return &ExportService{
		repo:    repo,
		policy:  resolver,
		archive: archive,
		log:     log,
		now:     time.Now,
	}
}

// ExportHRTimesheet renders the timesheet for a caller allowed to read it.
func (s *ExportService) ExportHRTimesheet(ctx context.Context, sub policy.Subject, id uint64) (*ExportResult, error) {
	ts, err := s.loadTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionRead, hrResource(ts)); err != nil {
		return nil, err
	}
	return s.render(ctx, ts)
}

// RenderHRTimesheet renders a timesheet without a permission check, for
// operator tooling.
func (s *ExportService) RenderHRTimesheet(ctx context.Context, id uint64) (*ExportResult, error) {
	ts, err := s.loadTimesheet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, ts)
}

func (s *ExportService) render(ctx context.Context, ts *models.HRTimesheet) (*ExportResult, error) {
	data, err := s.ExportToExcel(s.BuildHRTimesheetReport(ts))
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		Filename:    fmt.Sprintf("feuille-de-temps-%d-%s.xlsx", ts.ID, ts.WeekStartDate.Format("2006-01-02")),
		ContentType: xlsxContentType,
		Data:        data,
	}

	if s.archive != nil {
		key := fmt.Sprintf("reports/%d/%s.xlsx", ts.ID, uuid.NewString())
		stored, err := s.archive.Put(ctx, key, data, xlsxContentType)
		if err != nil {
			s.log.Warn("failed to archive report", zap.Uint64("hr_timesheet_id", ts.ID), zap.Error(err))
		} else {
			result.ArchiveKey = stored
		}
	}

	return result, nil
}

// BuildHRTimesheetReport maps an HR timesheet into ReportData.
func (s *ExportService) BuildHRTimesheetReport(ts *models.HRTimesheet) ReportData {
	created := ts.CreatedAt
	report := ReportData{
		Title: fmt.Sprintf("Feuille de temps RH - %s", ts.EmployeeName),
		Content: fmt.Sprintf("Poste : %s\nSite : %s\nStatut : %s\nObservations : %s",
			ts.Position, ts.Site, ts.Status, ts.EmployeeObservations),
		Period: fmt.Sprintf("Du %s au %s",
			ts.WeekStartDate.Format(reportDateLayout), ts.WeekEndDate.Format(reportDateLayout)),
		Author:    ts.EmployeeName,
		CreatedAt: &created,
	}
	if ts.User.ID != 0 {
		report.Author = ts.User.DisplayName()
	}

	for _, a := range ts.Activities {
		report.Activities = append(report.Activities, ReportActivity{
			Type:        activityTypeLabels[a.ActivityType],
			Name:        a.ActivityName,
			Periodicity: periodicityLabels[a.Periodicity],
			StartDate:   a.StartDate,
			EndDate:     a.EndDate,
			TotalHours:  a.TotalHours,
			Status:      activityStatusLabels[a.Status],
		})
	}

	return report
}

// ExportToExcel renders the report as an xlsx workbook with one sheet: a
// header block followed by the activities table and its total row.
func (s *ExportService) ExportToExcel(report ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: reportSheet}
	w.width("A", "A", 16)
	w.width("B", "B", 36)
	w.width("C", "F", 14)
	w.width("G", "G", 14)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create total style: %w", err)
	}

	w.set(1, 1, report.Title)
	w.merge(1, 1, 7, 1)
	w.style(1, 1, 1, 1, titleStyle)

	row := 3
	meta := []reportField{
		{"Période", report.Period},
		{"Auteur", report.Author},
	}
	if report.CreatedAt != nil {
		meta = append(meta, reportField{"Créé le", report.CreatedAt.Format(reportStampLayout)})
	}
	meta = append(meta, reportField{"Généré le", s.now().Format(reportStampLayout)})

	for _, m := range meta {
		if m.value == "" {
			continue
		}
		w.set(1, row, m.label)
		w.style(1, row, 1, row, totalStyle)
		w.set(2, row, m.value)
		row++
	}

	if report.Content != "" {
		row++
		w.set(1, row, report.Content)
		w.merge(1, row, 7, row)
		row++
	}

	row++
	headers := []string{"Type", "Activité", "Périodicité", "Début", "Fin", "Heures", "Statut"}
	for i, h := range headers {
		w.set(i+1, row, h)
	}
	w.style(1, row, len(headers), row, headerStyle)
	row++

	var total float64
	for _, a := range report.Activities {
		w.set(1, row, a.Type)
		w.set(2, row, a.Name)
		w.set(3, row, a.Periodicity)
		w.set(4, row, a.StartDate.Format(reportDateLayout))
		w.set(5, row, a.EndDate.Format(reportDateLayout))
		w.set(6, row, a.TotalHours)
		w.set(7, row, a.Status)
		total += a.TotalHours
		row++
	}

	w.set(5, row, "Total")
	w.set(6, row, total)
	w.style(5, row, 6, row, totalStyle)

	if w.err != nil {
		s.log.Error("failed to fill workbook", zap.Error(w.err))
		return nil, fmt.Errorf("failed to fill workbook: %w", w.err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.log.Error("failed to write workbook", zap.Error(err))
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExportService) loadTimesheet(ctx context.Context, id uint64) (*models.HRTimesheet, error) {
	ts, err := s.repo.HRTimesheet.FindByID(ctx, id, "User", "Activities")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrHRTimesheetNotFound
		}
		return nil, fmt.Errorf("failed to find HR timesheet: %w", err)
	}
	return ts, nil
}

type reportField struct {
	label string
	value string
}

// sheetWriter fills one sheet and keeps the first error; later calls are
// skipped once it is set.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) cell(col, row int) string {
	if w.err != nil {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
	}
	return name
}

func (w *sheetWriter) width(from, to string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, from, to, width)
	}
}

func (w *sheetWriter) set(col, row int, value interface{}) {
	cell := w.cell(col, row)
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, cell, value)
	}
}

func (w *sheetWriter) merge(fromCol, fromRow, toCol, toRow int) {
	from, to := w.cell(fromCol, fromRow), w.cell(toCol, toRow)
	if w.err == nil {
		w.err = w.f.MergeCell(w.sheet, from, to)
	}
}

func (w *sheetWriter) style(fromCol, fromRow, toCol, toRow, styleID int) {
	from, to := w.cell(fromCol, fromRow), w.cell(toCol, toRow)
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, styleID)
	}
}

var activityTypeLabels = map[models.HRActivityType]string{
	models.HRActivityOperational: "Opérationnelle",
	models.HRActivityReporting:   "Reporting",
}

var periodicityLabels = map[models.Periodicity]string{
	models.PeriodicityDaily:         "Quotidienne",
	models.PeriodicityWeekly:        "Hebdomadaire",
	models.PeriodicityMonthly:       "Mensuelle",
	models.PeriodicityWeeklyMonthly: "Hebdomadaire/Mensuelle",
	models.PeriodicityPunctual:      "Ponctuelle",
}

var activityStatusLabels = map[models.HRActivityStatus]string{
	models.HRActivityInProgress: "En cours",
	models.HRActivityCompleted:  "Terminée",
}
