package types

import (
	"encoding/json"
	"testing"
)

func TestResponseValueJSON(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		b, err := json.Marshal(TextValue("Ya"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `"Ya"` {
			t.Errorf("unexpected json: %s", b)
		}
	})

	t.Run("number from json", func(t *testing.T) {
		var v ResponseValue
		if err := json.Unmarshal([]byte(`12.5`), &v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Type != RESPONSE_VALUE_TYPE_NUMBER || v.Num != 12.5 {
			t.Errorf("unexpected value: %+v", v)
		}
	})

	t.Run("list from json", func(t *testing.T) {
		var v ResponseValue
		if err := json.Unmarshal([]byte(`["Bus", "Kereta"]`), &v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Type != RESPONSE_VALUE_TYPE_LIST || len(v.List) != 2 || v.List[1] != "Kereta" {
			t.Errorf("unexpected value: %+v", v)
		}
	})

	t.Run("object rejected", func(t *testing.T) {
		var v ResponseValue
		if err := json.Unmarshal([]byte(`{"a": 1}`), &v); err == nil {
			t.Error("should produce error")
		}
	})
}

func TestTriggerKey(t *testing.T) {
	tests := []struct {
		name   string
		value  ResponseValue
		want   string
		wantOk bool
	}{
		{name: "text is normalized", value: TextValue("  Tidak Bekerja "), want: "tidak bekerja", wantOk: true},
		{name: "integer number", value: NumberValue(3), want: "3", wantOk: true},
		{name: "list never triggers", value: ListValue([]string{"Ya"}), wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.TriggerKey()
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("TriggerKey() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestValidationCheck(t *testing.T) {
	min := 10.0
	max := 120.0
	ageRule := Validation{Required: true, ValueType: RESPONSE_VALUE_TYPE_NUMBER, Min: &min, Max: &max}

	tests := []struct {
		name    string
		rule    Validation
		value   ResponseValue
		wantErr bool
	}{
		{name: "required missing", rule: ageRule, value: TextValue(" "), wantErr: true},
		{name: "optional missing", rule: Validation{}, value: ResponseValue{}, wantErr: false},
		{name: "number in range", rule: ageRule, value: NumberValue(34), wantErr: false},
		{name: "numeric text in range", rule: ageRule, value: TextValue("34"), wantErr: false},
		{name: "below min", rule: ageRule, value: NumberValue(4), wantErr: true},
		{name: "above max", rule: ageRule, value: NumberValue(140), wantErr: true},
		{name: "not a number", rule: ageRule, value: TextValue("tiga puluh"), wantErr: true},
		{name: "single value expected", rule: Validation{ValueType: RESPONSE_VALUE_TYPE_TEXT}, value: ListValue([]string{"Ya"}), wantErr: true},
		{name: "list expected", rule: Validation{ValueType: RESPONSE_VALUE_TYPE_LIST}, value: TextValue("Bus"), wantErr: true},
		{name: "pattern ok", rule: Validation{Pattern: `^\d{4}-\d{2}-\d{2}`}, value: TextValue("2026-10-01 s.d. 2026-10-03"), wantErr: false},
		{name: "pattern mismatch", rule: Validation{Pattern: `^\d{4}-\d{2}-\d{2}`}, value: TextValue("kemarin"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Check(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuestionCheckAnswer(t *testing.T) {
	routine := Question{
		Code:       "S008",
		Kind:       QUESTION_KIND_CHOICE,
		Options:    []string{"Ya", "Tidak"},
		Validation: Validation{Required: true, ValueType: RESPONSE_VALUE_TYPE_TEXT},
	}
	modes := Question{
		Code:       "S006",
		Kind:       QUESTION_KIND_MULTI_CHOICE,
		Validation: Validation{Required: true, ValueType: RESPONSE_VALUE_TYPE_LIST},
	}
	modeOptions := []string{"Bus", "Kereta api"}

	tests := []struct {
		name     string
		question Question
		options  []string
		value    ResponseValue
		wantErr  bool
	}{
		{name: "listed option", question: routine, options: routine.Options, value: TextValue("Ya"), wantErr: false},
		{name: "other casing", question: routine, options: routine.Options, value: TextValue(" tidak "), wantErr: false},
		{name: "single element list", question: routine, options: routine.Options, value: ListValue([]string{"Ya"}), wantErr: true},
		{name: "not an option", question: routine, options: routine.Options, value: TextValue("Kadang"), wantErr: true},
		{name: "no options to check", question: routine, options: nil, value: TextValue("Kadang"), wantErr: false},
		{name: "all items listed", question: modes, options: modeOptions, value: ListValue([]string{"Bus", "kereta api"}), wantErr: false},
		{name: "unlisted item", question: modes, options: modeOptions, value: ListValue([]string{"Bus", "Pesawat"}), wantErr: true},
		{name: "validation still applies", question: modes, options: modeOptions, value: TextValue("Bus"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.CheckAnswer(tt.value, tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckAnswer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLatestResponse(t *testing.T) {
	responses := []Response{
		{QuestionCode: "KR004", Value: TextValue("Bekerja")},
		{QuestionCode: "KR005", Value: TextValue("Pertanian")},
		{QuestionCode: "KR004", Value: TextValue("Tidak Bekerja")},
	}
	v, ok := LatestResponse(responses, "KR004")
	if !ok || v.Str != "Tidak Bekerja" {
		t.Errorf("unexpected latest value: %+v", v)
	}
	if _, ok := LatestResponse(responses, "S001"); ok {
		t.Error("should not find response")
	}
}
