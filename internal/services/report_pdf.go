package services

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

// RenderReportPDF lays the summary out as a one-page A4 document.
func RenderReportPDF(r Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.TeamName+" report", false)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(r.TeamName))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	money := func(label, v string) {
		pdf.Cell(60, 7, label)
		pdf.Cell(60, 7, fmt.Sprintf("%s %s", v, r.Currency))
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	money("Income", r.Income.StringFixed(2))
	money("Expense", r.Expense.StringFixed(2))
	money("Net", r.Net.StringFixed(2))
	money("Budget", r.Budget.StringFixed(2))
	money("Budget remaining", r.BudgetRemaining.StringFixed(2))
	money("Income goal", r.IncomeGoal.StringFixed(2))
	pdf.Cell(60, 7, "Goal progress")
	pdf.Cell(60, 7, r.GoalProgress.StringFixed(2)+"%")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Categories")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(30, 7, "Type")
	pdf.Cell(70, 7, "Category")
	pdf.Cell(20, 7, "Count")
	pdf.Cell(50, 7, "Total")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, c := range r.Categories {
		pdf.Cell(30, 7, string(c.Type))
		pdf.Cell(70, 7, tr(c.Category))
		pdf.Cell(20, 7, fmt.Sprint(c.Count))
		pdf.Cell(50, 7, c.Total.StringFixed(2))
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
