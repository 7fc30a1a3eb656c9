package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

type pdfReport struct {
	pdf    *fpdf.Fpdf
	report Report
}

// WritePDF рендерит отчет в PDF.
func WritePDF(report Report) ([]byte, error) {
	r := &pdfReport{
		pdf:    fpdf.New("P", "mm", "A4", ""),
		report: report,
	}

	r.pdf.SetMargins(marginLeft, marginTop, marginRight)
	r.pdf.SetAutoPageBreak(true, marginBottom)
	r.pdf.SetTitle(report.Title, true)

	r.addSummaryPage()
	r.addSchedule()

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (r *pdfReport) addSummaryPage() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 22)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, r.report.Title, "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Generated: %s", r.report.GeneratedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	r.pdf.Ln(8)

	r.drawSectionHeader("Inputs")
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(50, 50, 50)
	for _, input := range r.report.Inputs {
		r.pdf.CellFormat(contentWidth, 6, input, "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(6)

	r.drawSectionHeader("Summary")
	r.pdf.SetFillColor(245, 247, 250)
	for _, line := range r.report.Summary {
		r.pdf.SetFont("Arial", "", 10)
		r.pdf.CellFormat(contentWidth*0.6, 7, line.Label, "1", 0, "L", true, 0, "")
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.CellFormat(contentWidth*0.4, 7, FormatMoney(line.Value), "1", 1, "R", true, 0, "")
	}

	r.pdf.Ln(10)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4,
		"Projections assume a constant annual return and year-end contributions. "+
			"This document is for informational purposes only and does not constitute financial advice.", "", "C", false)
}

func (r *pdfReport) addSchedule() {
	if len(r.report.Schedule) == 0 {
		return
	}

	r.pdf.AddPage()
	r.drawSectionHeader("Year-by-Year Balance")

	headers := []string{"Year", "Contributed", "Balance"}
	widths := []float64{contentWidth * 0.2, contentWidth * 0.4, contentWidth * 0.4}
	r.drawTableHeader(headers, widths)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(50, 50, 50)
	for i, row := range r.report.Schedule {
		if r.pdf.GetY() > 265 {
			r.pdf.AddPage()
			r.drawTableHeader(headers, widths)
			r.pdf.SetFont("Arial", "", 9)
			r.pdf.SetTextColor(50, 50, 50)
		}

		fill := i%2 == 1
		r.pdf.SetFillColor(245, 247, 250)
		r.pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", row.Year), "1", 0, "L", fill, 0, "")
		r.pdf.CellFormat(widths[1], 6, FormatMoney(row.Contributed), "1", 0, "R", fill, 0, "")
		r.pdf.CellFormat(widths[2], 6, FormatMoney(row.Balance), "1", 1, "R", fill, 0, "")
	}
}

func (r *pdfReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 9, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(4)
}

func (r *pdfReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}
