package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const landscapeWidth = 277.0

// PDFExporter renders datasets into a landscape roster sheet.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a PDF document with a title, subtitle and table body.
func (e *PDFExporter) Render(data Dataset, title, subtitle string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	generated := e.now().UTC().Format(time.RFC3339)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("generated %s - page %d", generated, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	}
	if subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, subtitle, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	widths := columnWidths(data)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes columns by their longest cell, bounded so narrow columns stay legible.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, header := range data.Headers {
		longest := len(header)
		for _, row := range data.Rows {
			if l := len(row[header]); l > longest {
				longest = l
			}
		}
		if longest < 6 {
			longest = 6
		}
		if longest > 40 {
			longest = 40
		}
		weights[i] = float64(longest)
		total += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / total * landscapeWidth
	}
	return weights
}
