package services

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
)

// WriteDailyPDF renders a one-page printable daily summary.
func WriteDailyPDF(w io.Writer, m *DailyMetrics, generatedAt time.Time, loc *time.Location) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(ReportSubject(models.ReportDaily, m), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "ZedBites Daily Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Business day: %s", m.Date))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", utils.FormatTime(generatedAt, loc)))
	pdf.Ln(14)

	rows := [][2]string{
		{"Orders", utils.FormatNumber(m.OrderCount)},
		{"Revenue", utils.FormatCurrency(m.Revenue)},
		{"Low stock items", utils.FormatNumber(m.InventoryAlerts)},
		{"Active recipes", utils.FormatNumber(m.ActiveRecipes)},
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(90, 9, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 9, "Value", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 12)
	for _, r := range rows {
		pdf.CellFormat(90, 9, r[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 9, r[1], "1", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

const salesSheet = "Sales"

// WriteSalesXLSX exports sales entries with a total row.
func WriteSalesXLSX(w io.Writer, sales []models.Sale, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}

	headers := []string{"ID", "Sold At", "Description", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(salesSheet, cell, h); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(salesSheet, "A1", "D1", bold); err != nil {
		return err
	}

	var totalCents int64
	for i, s := range sales {
		row := i + 2
		values := []interface{}{s.ID, utils.FormatTime(s.SoldAt, loc), s.Description, s.Amount}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(salesSheet, cell, v); err != nil {
				return err
			}
		}
		totalCents += models.ToCents(s.Amount)
	}

	totalRow := len(sales) + 2
	if err := f.SetCellValue(salesSheet, fmt.Sprintf("C%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(salesSheet, fmt.Sprintf("D%d", totalRow), models.FromCents(totalCents)); err != nil {
		return err
	}
	if err := f.SetCellStyle(salesSheet, fmt.Sprintf("C%d", totalRow), fmt.Sprintf("D%d", totalRow), bold); err != nil {
		return err
	}
	_ = f.SetColWidth(salesSheet, "B", "B", 20)
	_ = f.SetColWidth(salesSheet, "C", "C", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
