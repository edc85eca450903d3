package progress

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/questionnaire"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

func defaultEngine(t *testing.T) *skipengine.Engine {
	t.Helper()
	q, err := questionnaire.Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := catalog.Build(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, err := skipengine.Compile(c, q.SkipRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		answered, notReached int
		want                 float64
	}{
		{0, 0, 100},
		{0, 10, 0},
		{1, 2, 33.33},
		{2, 1, 66.67},
		{26, 0, 100},
		{5, 20, 20},
	}
	for _, tt := range tests {
		if got := Percentage(tt.answered, tt.notReached); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.answered, tt.notReached, got, tt.want)
		}
	}
}

func TestCalculate(t *testing.T) {
	e := defaultEngine(t)

	t.Run("empty log", func(t *testing.T) {
		p := Calculate(e, nil)
		if p.Total != 27 || p.NotReached != 27 || p.CompletionPercentage != 0 {
			t.Errorf("unexpected progress: %+v", p)
		}
		if p.SkippedDetail == nil || len(p.SkippedDetail) != 0 {
			t.Errorf("unexpected skipped detail: %v", p.SkippedDetail)
		}
	})

	t.Run("skipped questions leave the denominator", func(t *testing.T) {
		responses := []types.Response{
			{QuestionCode: "KR001", Value: types.TextValue("Budi")},
			{QuestionCode: "KR002", Value: types.TextValue("Laki-laki")},
			{QuestionCode: "KR003", Value: types.NumberValue(40)},
			{QuestionCode: "KR004", Value: types.TextValue("Tidak Bekerja")},
			{QuestionCode: "KR005", Value: types.NotApplicableValue()},
		}
		p := Calculate(e, responses)
		if p.Answered != 4 || p.Skipped != 1 || p.NotReached != 22 {
			t.Fatalf("unexpected counts: %+v", p)
		}
		if p.CompletionPercentage != 15.38 {
			t.Errorf("unexpected percentage: %v", p.CompletionPercentage)
		}
		want := []SkippedQuestion{{QuestionCode: "KR005", Reason: `skipped because KR004 = "Tidak Bekerja"`, SkippedBy: "KR004"}}
		if diff := cmp.Diff(want, p.SkippedDetail); diff != "" {
			t.Errorf("unexpected skipped detail (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(p.SkippedDetail, p.NADetail); diff != "" {
			t.Errorf("skipped and N/A detail differ:\n%s", diff)
		}
	})

	t.Run("complete survey with skips is 100 percent", func(t *testing.T) {
		responses := []types.Response{}
		skipped := map[string]bool{"KR005": true, "S009": true, "S013A": true, "S013B": true, "S013C": true, "S013D": true, "S013E": true, "S013F": true, "S014": true}
		for _, code := range e.Catalog().Codes() {
			var value types.ResponseValue
			switch {
			case skipped[code]:
				value = types.NotApplicableValue()
			case code == "KR004":
				value = types.TextValue("Tidak Bekerja")
			case code == "S008":
				value = types.TextValue("Ya")
			case code == "S012":
				value = types.TextValue("Tidak")
			default:
				value = types.TextValue("jawaban")
			}
			responses = append(responses, types.Response{QuestionCode: code, Value: value})
		}
		p := Calculate(e, responses)
		if p.CompletionPercentage != 100 {
			t.Errorf("unexpected percentage: %v", p.CompletionPercentage)
		}
		if p.Skipped != 9 || p.Answered != 18 || p.NotReached != 0 {
			t.Errorf("unexpected counts: %+v", p)
		}
	})
}
