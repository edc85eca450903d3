package progress

import (
	"math"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

type SkippedQuestion struct {
	QuestionCode string `json:"questionCode"`
	Reason       string `json:"reason"`
	SkippedBy    string `json:"skippedBy"`
}

type Progress struct {
	CompletionPercentage float64                     `json:"completionPercentage"`
	Answered             int                         `json:"answered"`
	Skipped              int                         `json:"skipped"`
	NotReached           int                         `json:"notReached"`
	Total                int                         `json:"total"`
	PerQuestionStatus    []skipengine.QuestionStatus `json:"perQuestionStatus"`
	SkippedDetail        []SkippedQuestion           `json:"skippedDetail"`
	NADetail             []SkippedQuestion           `json:"naDetail"`
}

// Calculate derives progress from a response log. Skipped questions count
// neither for nor against completion.
func Calculate(engine *skipengine.Engine, responses []types.Response) Progress {
	statuses := engine.ComputeStatus(responses)

	p := Progress{
		Total:             len(statuses),
		PerQuestionStatus: statuses,
		SkippedDetail:     []SkippedQuestion{},
	}
	for _, s := range statuses {
		switch s.Status {
		case skipengine.STATUS_ANSWERED:
			p.Answered++
		case skipengine.STATUS_SKIPPED:
			p.Skipped++
			p.SkippedDetail = append(p.SkippedDetail, SkippedQuestion{
				QuestionCode: s.QuestionCode,
				Reason:       s.Reason,
				SkippedBy:    s.SkippedBy,
			})
		default:
			p.NotReached++
		}
	}
	p.NADetail = append([]SkippedQuestion{}, p.SkippedDetail...)
	p.CompletionPercentage = Percentage(p.Answered, p.NotReached)
	return p
}

// Percentage is answered/(answered+notReached) in percent, rounded to two decimals.
func Percentage(answered, notReached int) float64 {
	applicable := answered + notReached
	if applicable == 0 {
		return 100
	}
	return math.Round(float64(answered)/float64(applicable)*10000) / 100
}
