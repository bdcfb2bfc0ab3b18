package stats

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"call-qa-go/internal/rubric"
	"call-qa-go/internal/storage"
)

// ActionCard is the one-line takeaway shown on the dashboard.
type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// Dashboard is the aggregate view over all stored QA evaluations.
type Dashboard struct {
	TotalCalls       int                         `json:"total_calls"`
	AverageScore     float64                     `json:"average_score"`
	HighestScore     int                         `json:"highest_score"`
	LowestScore      int                         `json:"lowest_score"`
	ScoreBands       map[string]int              `json:"score_bands"`
	CategoryAverages map[string]float64          `json:"category_averages"`
	ActionCard       ActionCard                  `json:"action_card"`
	CallEvaluations  []storage.EvaluationSummary `json:"call_evaluations"`
}

const (
	bandExcellent = "excellent"         // 90-100
	bandGood      = "good"              // 70-89
	bandBelow     = "needs_improvement" // <70
)

// Build computes dashboard aggregates from the joined evaluation rows.
func Build(rows []storage.EvaluationSummary) Dashboard {
	d := Dashboard{
		ScoreBands:       map[string]int{},
		CategoryAverages: map[string]float64{},
		CallEvaluations:  rows,
	}
	if rows == nil {
		d.CallEvaluations = []storage.EvaluationSummary{}
	}
	d.TotalCalls = len(rows)
	if d.TotalCalls == 0 {
		d.ActionCard = ActionCard{
			Insight: "No evaluated calls yet",
			Action:  "Process calls to populate the dashboard",
			Impact:  "None",
		}
		return d
	}

	scores := lo.Map(rows, func(r storage.EvaluationSummary, _ int) int { return r.TotalScore })
	total := lo.Sum(scores)
	d.AverageScore = round1(float64(total) / float64(len(scores)))
	d.HighestScore = lo.Max(scores)
	d.LowestScore = lo.Min(scores)
	d.ScoreBands = lo.CountValuesBy(scores, band)
	d.CategoryAverages = categoryAverages(rows)
	d.ActionCard = card(d)
	return d
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func band(score int) string {
	switch {
	case score >= 90:
		return bandExcellent
	case score >= 70:
		return bandGood
	default:
		return bandBelow
	}
}

func categoryAverages(rows []storage.EvaluationSummary) map[string]float64 {
	out := map[string]float64{}
	for _, cat := range rubric.Categories() {
		sum := lo.SumBy(rows, func(r storage.EvaluationSummary) int { return r.CategoryScores[cat] })
		out[cat] = round1(float64(sum) / float64(len(rows)))
	}
	return out
}

// focusArea is the category with the lowest average relative to its cap.
func focusArea(averages map[string]float64) (string, float64, int) {
	caps := rubric.CategoryCaps()
	focus, worst := "", math.MaxFloat64
	for _, cat := range rubric.Categories() {
		ratio := averages[cat] / float64(caps[cat])
		if ratio < worst {
			focus, worst = cat, ratio
		}
	}
	return focus, averages[focus], caps[focus]
}

func card(d Dashboard) ActionCard {
	focus, avg, outOf := focusArea(d.CategoryAverages)
	belowShare := float64(d.ScoreBands[bandBelow]) / float64(d.TotalCalls)
	if belowShare >= 0.35 {
		return ActionCard{
			Insight: fmt.Sprintf("%.0f%% of evaluated calls score below 70; weakest category is %s (avg %.1f of %d)", belowShare*100, focus, avg, outOf),
			Action:  fmt.Sprintf("Schedule coaching on the lowest-scoring calls with focus on %s", focus),
			Impact:  "Raise average QA score and reduce repeat escalations",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("Average QA score %.1f across %d calls", d.AverageScore, d.TotalCalls),
		Action:  fmt.Sprintf("Focus area: %s (avg %.1f of %d)", focus, avg, outOf),
		Impact:  "Low immediate intervention",
	}
}
