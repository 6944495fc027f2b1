package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/welddesk/reports_backend/models"
)

var tracer = otel.Tracer("reports-backend/reports")

const sheetName = "Reports"

// journalHeaders is the fixed journal export schema: identification columns,
// the six inspection-method check flags, result/defect, report number,
// creator login and the formatted creation timestamp.
var journalHeaders = []string{
	"Заказчик",
	"Подразделение",
	"Вид работ",
	"Наименование ТУ",
	"Рег №ТУ",
	"Зав №ТУ",
	"УЗТ",
	"ВИК",
	"ЦД",
	"УЗК",
	"ТВ",
	"РК",
	"Результат",
	"Дефект",
	"Номер отчета",
	"Логин создателя",
	"Дата и время",
}

var ruMonthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatReportTimestamp renders the creation time the way the journal always
// has (ru-RU long date), "Нет даты" for the zero value.
func FormatReportTimestamp(t time.Time) string {
	if t.IsZero() {
		return "Нет даты"
	}
	return fmt.Sprintf("%d %s %d г., %02d:%02d",
		t.Day(), ruMonthsGenitive[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func journalRow(report models.Report) []any {
	defect := ""
	if report.Defect != nil {
		defect = *report.Defect
	}
	row := []any{
		report.Customer,
		report.Division,
		report.Work,
		report.NameTY,
		report.RegTY,
		report.ZavTY,
	}
	for _, method := range models.MethodKeys {
		row = append(row, report.DataPoint(method).CheckValue())
	}
	row = append(row,
		report.Result,
		defect,
		report.Number,
		report.Login,
		FormatReportTimestamp(report.CreatedAt),
	)
	return row
}

// GenerateJournal builds the journal workbook: one header row, one data row
// per report. An empty report set yields a header-only sheet.
func GenerateJournal(reportList []models.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	// Add headers
	col := 'A'
	for _, h := range journalHeaders {
		if err := f.SetCellValue(sheetName, string(col)+"1", h); err != nil {
			return nil, err
		}
		col++
	}

	// Add data
	for i, report := range reportList {
		col := 'A'
		for _, value := range journalRow(report) {
			cell := string(col) + fmt.Sprint(i+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
			col++
		}
	}

	return f, nil
}

// GenerateJournalBytes renders the workbook to xlsx bytes for the HTTP
// response or a GCS upload.
func GenerateJournalBytes(ctx context.Context, reportList []models.Report) ([]byte, error) {
	_, span := tracer.Start(ctx, "GenerateJournalBytes")
	defer span.End()
	span.SetAttributes(attribute.Int("journal.export_rows", len(reportList)))

	f, err := GenerateJournal(reportList)
	if err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
