package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"call-qa-go/internal/stats"
	"call-qa-go/internal/storage"
)

func TestWorkbook(t *testing.T) {
	req := require.New(t)

	d := stats.Build([]storage.EvaluationSummary{
		{QAID: 1, TranscriptID: 1, Filename: "a.wav", TotalScore: 92, AgentNames: []string{"Priya"}},
		{QAID: 2, TranscriptID: 2, Filename: "b.wav", TotalScore: 61},
	})
	f, err := Workbook(d)
	req.NoError(err)
	defer f.Close()

	title, err := f.GetCellValue("Summary", "A1")
	req.NoError(err)
	req.Equal("Call QA Report", title)

	totalCalls, err := f.GetCellValue("Summary", "B3")
	req.NoError(err)
	req.Equal("2", totalCalls)

	filename, err := f.GetCellValue("Evaluations", "C2")
	req.NoError(err)
	req.Equal("a.wav", filename)

	agents, err := f.GetCellValue("Evaluations", "F2")
	req.NoError(err)
	req.Equal("Priya", agents)

	section, err := f.GetCellValue("Summary", "A16")
	req.NoError(err)
	req.Equal("Category averages", section)

	firstCategory, err := f.GetCellValue("Summary", "A17")
	req.NoError(err)
	req.Equal("greeting", firstCategory)
}

func TestWorkbook_EmptyDashboard(t *testing.T) {
	req := require.New(t)

	f, err := Workbook(stats.Build(nil))
	req.NoError(err)
	defer f.Close()

	header, err := f.GetCellValue("Evaluations", "A1")
	req.NoError(err)
	req.Equal("QA ID", header)
}
