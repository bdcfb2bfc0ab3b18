package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"call-qa-go/internal/rubric"
	"call-qa-go/internal/stats"
)

// Workbook renders the dashboard as an Excel report: a Summary sheet with the
// aggregates and an Evaluations sheet with one row per scored call.
func Workbook(d stats.Dashboard) (*excelize.File, error) {
	f := excelize.NewFile()
	const summary = "Summary"
	const evaluations = "Evaluations"

	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	summaryRows := [][]any{
		{"Call QA Report"},
		{},
		{"Total calls", d.TotalCalls},
		{"Average score", d.AverageScore},
		{"Highest score", d.HighestScore},
		{"Lowest score", d.LowestScore},
		{},
		{"Excellent (90-100)", d.ScoreBands["excellent"]},
		{"Good (70-89)", d.ScoreBands["good"]},
		{"Needs improvement (<70)", d.ScoreBands["needs_improvement"]},
		{},
		{"Insight", d.ActionCard.Insight},
		{"Action", d.ActionCard.Action},
		{"Impact", d.ActionCard.Impact},
		{},
		{"Category averages"},
	}
	for _, cat := range rubric.Categories() {
		summaryRows = append(summaryRows, []any{cat, d.CategoryAverages[cat]})
	}
	for i, row := range summaryRows {
		if err := f.SetSheetRow(summary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
	}

	if _, err := f.NewSheet(evaluations); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	header := []any{"QA ID", "Transcript ID", "Filename", "Total Score", "Created At", "Agents", "Patients", "Test Centers"}
	if err := f.SetSheetRow(evaluations, "A1", &header); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	for i, ev := range d.CallEvaluations {
		row := []any{
			ev.QAID, ev.TranscriptID, ev.Filename, ev.TotalScore, ev.CreatedAt,
			strings.Join(ev.AgentNames, ", "),
			strings.Join(ev.PatientNames, ", "),
			strings.Join(ev.TestCenters, ", "),
		}
		if err := f.SetSheetRow(evaluations, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
	}
	return f, nil
}
