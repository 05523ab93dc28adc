package analysis

import (
	"bytes"
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Fallback sentinels used when the model output cannot be decoded.
const (
	FallbackImprovementArea = "Failed to parse structured response"
	FallbackRecommendation  = "Please try again with a different resume"
)

// ParseResult converts a raw model response into an AnalysisResult.
// The boolean reports whether structured decoding succeeded; on failure a
// deterministic fallback carrying the raw text is returned. It never fails.
//
// Any syntactically valid object is accepted. Fields of an unexpected type
// are coerced where possible and left empty otherwise.
func ParseResult(raw string) (types.AnalysisResult, bool) {
	body, ok := extractJSONObject(llm.CleanJSONBlock(raw))
	if ok {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &fields); err == nil {
			if err := schemas.ValidateAnalysisResult(body); err != nil {
				log.Printf("[parser] analysis output drifted from schema: %v", err)
			}
			result := decodeFields(fields)
			result.Normalize()
			return result, true
		}
	}
	return FallbackResult(raw), false
}

func decodeFields(f map[string]json.RawMessage) types.AnalysisResult {
	keywords := objectFields(f["keywordMatch"])
	contact := objectFields(f["contactInfo"])
	return types.AnalysisResult{
		ATSScore:         decodeScore(f["atsScore"]),
		Summary:          lenientString(f["summary"]),
		Strengths:        lenientStrings(f["strengths"]),
		ImprovementAreas: lenientStrings(f["improvementAreas"]),
		KeywordMatch: types.KeywordMatch{
			Matched: lenientStrings(keywords["matched"]),
			Missing: lenientStrings(keywords["missing"]),
		},
		Recommendations:  lenientStrings(f["recommendations"]),
		DetailedAnalysis: lenientString(f["detailedAnalysis"]),
		ContactInfo: types.ContactInfo{
			Name:     lenientString(contact["name"]),
			Email:    lenientString(contact["email"]),
			Phone:    lenientString(contact["phone"]),
			Location: lenientString(contact["location"]),
			LinkedIn: lenientString(contact["linkedin"]),
			GitHub:   lenientString(contact["github"]),
			Website:  lenientString(contact["website"]),
		},
	}
}

// objectFields returns the members of a JSON object, or nil for anything else.
func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil {
		return nil
	}
	return out
}

// decodeAny keeps numbers as their literal text.
func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// scalarString renders strings, numbers and booleans; other values are empty.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// lenientString accepts a scalar, or a list of scalars joined with ", ".
func lenientString(raw json.RawMessage) string {
	switch v := decodeAny(raw).(type) {
	case []any:
		return strings.Join(scalarList(v), ", ")
	default:
		return scalarString(v)
	}
}

// lenientStrings accepts a list of scalars or a single scalar.
func lenientStrings(raw json.RawMessage) []string {
	switch v := decodeAny(raw).(type) {
	case []any:
		return scalarList(v)
	default:
		if s := scalarString(v); strings.TrimSpace(s) != "" {
			return []string{s}
		}
		return []string{}
	}
}

func scalarList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarString(item); strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return roundScore(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
			return roundScore(f)
		}
	}
	return 0
}

func roundScore(f float64) int {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= types.MaxATSScore:
		return types.MaxATSScore
	}
	return int(math.Round(f))
}

// FallbackResult is the record produced for undecodable model output.
func FallbackResult(raw string) types.AnalysisResult {
	result := types.AnalysisResult{
		ATSScore:         0,
		Summary:          raw,
		Strengths:        []string{},
		ImprovementAreas: []string{FallbackImprovementArea},
		Recommendations:  []string{FallbackRecommendation},
		DetailedAnalysis: raw,
	}
	result.Normalize()
	return result
}

// extractJSONObject returns the substring from the first '{' to the last '}'.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
