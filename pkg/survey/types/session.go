package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SESSION_STATUS_IN_PROGRESS = "IN_PROGRESS"
	SESSION_STATUS_COMPLETED   = "COMPLETED"
)

const (
	RESPONSE_VALUE_TYPE_TEXT   = "str"
	RESPONSE_VALUE_TYPE_NUMBER = "num"
	RESPONSE_VALUE_TYPE_LIST   = "list"
)

// NOT_APPLICABLE is recorded for questions a skip rule made inapplicable.
const NOT_APPLICABLE = "N/A"

type SurveySession struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID               string             `bson:"userID" json:"userId"`
	Status               string             `bson:"status" json:"status"`
	QuestionnaireVersion string             `bson:"questionnaireVersion,omitempty" json:"questionnaireVersion,omitempty"`
	Responses            []Response         `bson:"responses" json:"responses"`
	CurrentIndex         int                `bson:"currentIndex" json:"currentIndex"`
	CreatedAt            int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt            int64              `bson:"updatedAt" json:"updatedAt"`
	CompletedAt          int64              `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

func (s SurveySession) IsCompleted() bool {
	return s.Status == SESSION_STATUS_COMPLETED
}

// LatestResponse returns the last recorded value for a question code.
func (s SurveySession) LatestResponse(code string) (ResponseValue, bool) {
	return LatestResponse(s.Responses, code)
}

func LatestResponse(responses []Response, code string) (ResponseValue, bool) {
	for i := len(responses) - 1; i >= 0; i-- {
		if responses[i].QuestionCode == code {
			return responses[i].Value, true
		}
	}
	return ResponseValue{}, false
}

type Response struct {
	QuestionCode string        `bson:"questionCode" json:"questionCode"`
	Value        ResponseValue `bson:"value" json:"value"`
}

// ResponseValue holds a text, number or list-of-text answer.
type ResponseValue struct {
	Type string   `bson:"type"`
	Str  string   `bson:"str,omitempty"`
	Num  float64  `bson:"num,omitempty"`
	List []string `bson:"list,omitempty"`
}

func TextValue(s string) ResponseValue {
	return ResponseValue{Type: RESPONSE_VALUE_TYPE_TEXT, Str: s}
}

func NumberValue(n float64) ResponseValue {
	return ResponseValue{Type: RESPONSE_VALUE_TYPE_NUMBER, Num: n}
}

func ListValue(items []string) ResponseValue {
	return ResponseValue{Type: RESPONSE_VALUE_TYPE_LIST, List: items}
}

func NotApplicableValue() ResponseValue {
	return TextValue(NOT_APPLICABLE)
}

func (v ResponseValue) IsNotApplicable() bool {
	return v.Type == RESPONSE_VALUE_TYPE_TEXT && v.Str == NOT_APPLICABLE
}

func (v ResponseValue) IsEmpty() bool {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_TEXT:
		return strings.TrimSpace(v.Str) == ""
	case RESPONSE_VALUE_TYPE_NUMBER:
		return false
	case RESPONSE_VALUE_TYPE_LIST:
		return len(v.List) == 0
	default:
		return true
	}
}

// AsNumber returns the numeric value, parsing text values when possible.
func (v ResponseValue) AsNumber() (float64, bool) {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_NUMBER:
		return v.Num, true
	case RESPONSE_VALUE_TYPE_TEXT:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// AsList returns list items; a text value becomes a single-item list.
func (v ResponseValue) AsList() []string {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_LIST:
		return v.List
	case RESPONSE_VALUE_TYPE_TEXT:
		if strings.TrimSpace(v.Str) == "" {
			return nil
		}
		return []string{v.Str}
	case RESPONSE_VALUE_TYPE_NUMBER:
		return []string{v.String()}
	}
	return nil
}

// TriggerKey is the normalized form used to match skip rules. Lists never trigger.
func (v ResponseValue) TriggerKey() (string, bool) {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_TEXT:
		return NormalizeTriggerValue(v.Str), true
	case RESPONSE_VALUE_TYPE_NUMBER:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	}
	return "", false
}

func (v ResponseValue) String() string {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_TEXT:
		return v.Str
	case RESPONSE_VALUE_TYPE_NUMBER:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case RESPONSE_VALUE_TYPE_LIST:
		return strings.Join(v.List, ", ")
	}
	return ""
}

// MarshalJSON writes the value as a plain JSON string, number or array.
func (v ResponseValue) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case RESPONSE_VALUE_TYPE_NUMBER:
		return json.Marshal(v.Num)
	case RESPONSE_VALUE_TYPE_LIST:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case RESPONSE_VALUE_TYPE_TEXT:
		return json.Marshal(v.Str)
	}
	return []byte("null"), nil
}

func (v *ResponseValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ResponseValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ResponseValueFromAny converts decoded JSON (string, number, array of strings) into a value.
func ResponseValueFromAny(raw interface{}) (ResponseValue, error) {
	switch val := raw.(type) {
	case nil:
		return ResponseValue{}, nil
	case string:
		return TextValue(val), nil
	case float64:
		return NumberValue(val), nil
	case int:
		return NumberValue(float64(val)), nil
	case []string:
		return ListValue(val), nil
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			switch it := item.(type) {
			case string:
				items = append(items, it)
			case float64:
				items = append(items, strconv.FormatFloat(it, 'f', -1, 64))
			default:
				return ResponseValue{}, fmt.Errorf("unsupported list item type %T", item)
			}
		}
		return ListValue(items), nil
	}
	return ResponseValue{}, errors.New("unsupported response value type")
}
