package skipengine

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

var triggerAnswers = []string{"Ya", "Tidak", "Bekerja", "Tidak Bekerja", "tidak", " YA ", types.NOT_APPLICABLE, "Lainnya"}

func genResponseLog(codes []string) *rapid.Generator[[]types.Response] {
	return rapid.Custom(func(t *rapid.T) []types.Response {
		n := rapid.IntRange(0, 40).Draw(t, "length")
		out := make([]types.Response, 0, n)
		for i := 0; i < n; i++ {
			code := rapid.SampledFrom(codes).Draw(t, "code")
			value := rapid.SampledFrom(triggerAnswers).Draw(t, "value")
			out = append(out, types.Response{QuestionCode: code, Value: types.TextValue(value)})
		}
		return out
	})
}

func TestProperty_StatusCoversCatalog(t *testing.T) {
	e := defaultEngine(t)
	codes := e.Catalog().Codes()

	rapid.Check(t, func(t *rapid.T) {
		responses := genResponseLog(codes).Draw(t, "responses")
		statuses := e.ComputeStatus(responses)

		if len(statuses) != len(codes) {
			t.Fatalf("expected %d statuses, got %d", len(codes), len(statuses))
		}
		for i, s := range statuses {
			if s.Index != i || s.QuestionCode != codes[i] {
				t.Fatalf("status %d out of order: %+v", i, s)
			}
			switch s.Status {
			case STATUS_ANSWERED:
				if s.Value == nil || s.Value.IsNotApplicable() {
					t.Fatalf("answered status without a value: %+v", s)
				}
			case STATUS_SKIPPED:
				if s.Reason == "" || s.SkippedBy == "" {
					t.Fatalf("skipped status without a reason: %+v", s)
				}
			case STATUS_NOT_REACHED:
			default:
				t.Fatalf("unknown status %q", s.Status)
			}
		}
	})
}

func TestProperty_SkipFollowsLatestTrigger(t *testing.T) {
	e := defaultEngine(t)
	codes := e.Catalog().Codes()

	rapid.Check(t, func(t *rapid.T) {
		responses := genResponseLog(codes).Draw(t, "responses")
		byCode := statusByCode(e.ComputeStatus(responses))

		latest, ok := types.LatestResponse(responses, "S008")
		wantSkipped := ok && types.NormalizeTriggerValue(latest.Str) == "ya"
		gotSkipped := byCode["S009"].Status == STATUS_SKIPPED
		if wantSkipped != gotSkipped {
			t.Fatalf("S009 skipped=%v, latest S008=%+v", gotSkipped, latest)
		}
	})
}

func TestProperty_AdvanceMovesForward(t *testing.T) {
	e := defaultEngine(t)
	codes := e.Catalog().Codes()

	rapid.Check(t, func(t *rapid.T) {
		code := rapid.SampledFrom(codes).Draw(t, "code")
		value := rapid.SampledFrom(triggerAnswers).Draw(t, "value")

		step, err := e.Advance(code, types.TextValue(value))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		current := indexOf(t, e, code)
		if step.Next <= current || step.Next > e.Catalog().Len() {
			t.Fatalf("next %d not after %d", step.Next, current)
		}
		for _, skipped := range step.Skipped {
			idx := indexOf(t, e, skipped)
			if idx <= current || idx >= step.Next {
				t.Fatalf("skipped %s outside (%d, %d)", skipped, current, step.Next)
			}
		}
	})
}
