// Package report renders a dataset's Summary into downloadable documents.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/usecase"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
)

// Clock supplies the "generated at" timestamp; injectable for tests.
type Clock interface {
	Now() time.Time
}

// PDF renders the one-page summary report. The same dataset and clock
// always produce byte-identical output: the creation date is pinned to the
// injected clock, and everything else is derived from the Summary.
type PDF struct {
	clock Clock
}

func NewPDF(clock Clock) *PDF {
	return &PDF{clock: clock}
}

func (p *PDF) Render(ctx context.Context, dataset entity.Dataset) (usecase.Report, error) {
	now := time.Now()
	if p.clock != nil {
		now = p.clock.Now()
	}
	now = now.UTC()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Equipment Summary Report", false)
	doc.SetCreationDate(now)
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, "Chemical Equipment Summary")
	doc.Ln(12)

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(110, 110, 110)
	doc.Cell(0, 6, "Source file: "+dataset.FileName)
	doc.Ln(6)
	doc.Cell(0, 6, "Generated at: "+now.Format(time.RFC3339))
	doc.Ln(10)
	doc.SetTextColor(0, 0, 0)

	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, fmt.Sprintf("Total equipment records: %d", dataset.Summary.TotalRows))
	doc.Ln(12)

	p.renderAverages(doc, dataset.Summary)
	p.renderTypeCounts(doc, dataset.Summary)
	p.renderTypeBars(doc, dataset.Summary)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return usecase.Report{}, pkgerror.NewServer(fmt.Errorf("render pdf: %w", err))
	}

	return usecase.Report{
		ContentType: "application/pdf",
		FileName:    "summary-report.pdf",
		Body:        buf.Bytes(),
	}, nil
}

func (p *PDF) renderAverages(doc *fpdf.Fpdf, summary entity.Summary) {
	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, "Averages")
	doc.Ln(9)

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(60, 7, "Field", "1", 0, "L", true, 0, "")
	doc.CellFormat(40, 7, "Average", "1", 0, "R", true, 0, "")
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, avg := range summary.Averages {
		doc.CellFormat(60, 7, string(avg.Field), "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 7, strconv.FormatFloat(avg.Value, 'f', 1, 64), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}
	doc.Ln(6)
}

func (p *PDF) renderTypeCounts(doc *fpdf.Fpdf, summary entity.Summary) {
	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, "Equipment Types")
	doc.Ln(9)

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(60, 7, "Type", "1", 0, "L", true, 0, "")
	doc.CellFormat(40, 7, "Count", "1", 0, "R", true, 0, "")
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, tc := range summary.TypeCounts {
		doc.CellFormat(60, 7, tc.Type, "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 7, strconv.Itoa(tc.Count), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}
	doc.Ln(6)
}

// renderTypeBars draws a horizontal bar per equipment type, scaled against
// the largest count.
func (p *PDF) renderTypeBars(doc *fpdf.Fpdf, summary entity.Summary) {
	if len(summary.TypeCounts) == 0 {
		return
	}

	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, "Type Distribution")
	doc.Ln(9)

	maxCount := 0
	for _, tc := range summary.TypeCounts {
		if tc.Count > maxCount {
			maxCount = tc.Count
		}
	}
	if maxCount == 0 {
		return
	}

	const barMaxWidth = 110.0
	doc.SetFont("Helvetica", "", 9)
	doc.SetFillColor(66, 133, 244)
	for _, tc := range summary.TypeCounts {
		doc.CellFormat(50, 6, tc.Type, "", 0, "L", false, 0, "")
		x, y := doc.GetXY()
		width := barMaxWidth * float64(tc.Count) / float64(maxCount)
		doc.Rect(x, y+1, width, 4, "F")
		doc.SetXY(x+width+2, y)
		doc.CellFormat(0, 6, strconv.Itoa(tc.Count), "", 0, "L", false, 0, "")
		doc.Ln(7)
	}
}
