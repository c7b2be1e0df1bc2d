package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

const (
	documentSheet = "Document"
	historySheet  = "History"
	reportSheet   = "Leave"
	dateLayout    = "2006-01-02"
	timeLayout    = "2006-01-02 15:04"
)

// ExcelExporter renders approval sheets and leave reports as xlsx
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new xlsx exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// ExportDocument writes the document header, its approval chain and its audit trail
func (e *ExcelExporter) ExportDocument(doc *entity.ApprovalDocument, history []*entity.ApprovalHistory) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), documentSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := [][]interface{}{
		{"Document No.", doc.DocNumber},
		{"Title", doc.Title},
		{"Type", string(doc.DocType)},
		{"Status", doc.Status.String()},
		{"Drafter", doc.Drafter},
		{"Drafted", formatTime(&doc.DraftedAt)},
		{"Submitted", formatTime(doc.SubmittedAt)},
		{"Completed", formatTime(doc.CompletedAt)},
	}
	if doc.Leave != nil {
		header = append(header,
			[]interface{}{"Leave Type", string(doc.Leave.LeaveType)},
			[]interface{}{"Leave Period", doc.Leave.StartDate.Format(dateLayout) + " ~ " + doc.Leave.EndDate.Format(dateLayout)},
			[]interface{}{"Leave Hours", doc.Leave.RequestedHours().String()},
		)
	}

	row := 1
	for _, values := range header {
		e.setRow(f, documentSheet, row, values)
		row++
	}

	row++
	e.setRow(f, documentSheet, row, []interface{}{"Seq", "Approver", "Delegate", "Type", "Status", "Decided By", "Decided At", "Comment"})
	row++
	for _, l := range doc.Lines {
		e.setRow(f, documentSheet, row, []interface{}{
			l.OrderSeq,
			l.Approver,
			l.DelegatedTo,
			string(l.ApprovalType),
			l.Status.String(),
			l.DecidedBy,
			formatTime(l.DecidedAt),
			l.Comment,
		})
		row++
	}

	if _, err := f.NewSheet(historySheet); err != nil {
		return nil, fmt.Errorf("failed to create history sheet: %w", err)
	}
	e.setRow(f, historySheet, 1, []interface{}{"Time", "Actor", "Action", "From", "To", "Comment"})
	for i, h := range history {
		e.setRow(f, historySheet, i+2, []interface{}{
			formatTime(&h.Timestamp),
			h.Actor,
			h.Action,
			h.PreviousStatus.String(),
			h.NewStatus.String(),
			h.Comment,
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Document exported",
		zap.Int64("document_id", doc.ID),
		zap.Int("lines", len(doc.Lines)),
		zap.Int("history", len(history)))
	return buf.Bytes(), nil
}

// ExportLeaveReport writes one row per balance of the year
func (e *ExcelExporter) ExportLeaveReport(year int, balances []*entity.AnnualLeave) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%s %d", reportSheet, year)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	e.setRow(f, sheet, 1, []interface{}{"User", "Total Hours", "Carried Over", "Used Hours", "Remaining Hours", "Expires"})
	for i, b := range balances {
		e.setRow(f, sheet, i+2, []interface{}{
			b.UserID,
			b.TotalHours.InexactFloat64(),
			b.CarriedOverHours.InexactFloat64(),
			b.UsedHours.InexactFloat64(),
			b.RemainingHours().InexactFloat64(),
			b.ExpiryDate.Format(dateLayout),
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Leave report exported", zap.Int("year", year), zap.Int("rows", len(balances)))
	return buf.Bytes(), nil
}

// setRow writes values starting at column A of the given row
func (e *ExcelExporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		e.logger.Warn("Invalid row", zap.Int("row", row), zap.Error(err))
		return
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		e.logger.Warn("Failed to set row",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

var _ port.DocumentExporter = (*ExcelExporter)(nil)
