package diagnose

import "testing"

func TestParseResult_EmbeddedPayload(t *testing.T) {
	raw := `With what I see, I think you have mild bronchitis.
{"diagnosis": "Mild bronchitis", "confidence": 0.82, "explanation": "With what I see, I think you have mild bronchitis."}`

	res := parseResult(raw)

	if res.Diagnosis != "Mild bronchitis" {
		t.Errorf("diagnosis = %q", res.Diagnosis)
	}
	if res.Confidence != 0.82 {
		t.Errorf("confidence = %v, want 0.82", res.Confidence)
	}
	if res.Explanation != "With what I see, I think you have mild bronchitis." {
		t.Errorf("explanation = %q", res.Explanation)
	}
}

func TestParseResult_MissingFieldsDefault(t *testing.T) {
	raw := `some prose {"explanation": "looks fine"} more prose`

	res := parseResult(raw)

	if res.Diagnosis != missingFieldDiagnosis {
		t.Errorf("diagnosis = %q, want %q", res.Diagnosis, missingFieldDiagnosis)
	}
	if res.Confidence != defaultConfidence {
		t.Errorf("confidence = %v, want %v", res.Confidence, defaultConfidence)
	}
	if res.Explanation != "looks fine" {
		t.Errorf("explanation = %q", res.Explanation)
	}
}

func TestParseResult_NoPayloadPassthrough(t *testing.T) {
	raw := "With what I see, I think you have a small fracture on the left side. Rest and a follow-up scan should help."

	res := parseResult(raw)

	if res.Diagnosis != fallbackDiagnosis {
		t.Errorf("diagnosis = %q, want %q", res.Diagnosis, fallbackDiagnosis)
	}
	if res.Confidence != defaultConfidence {
		t.Errorf("confidence = %v, want %v", res.Confidence, defaultConfidence)
	}
	// весь сырой текст уходит в explanation без изменений
	if res.Explanation != raw {
		t.Errorf("explanation = %q, want raw text", res.Explanation)
	}
}

func TestParseResult_BrokenPayloadPassthrough(t *testing.T) {
	raw := `prose {"diagnosis": } prose`

	res := parseResult(raw)

	if res.Diagnosis != fallbackDiagnosis {
		t.Errorf("diagnosis = %q, want %q", res.Diagnosis, fallbackDiagnosis)
	}
	if res.Explanation != raw {
		t.Errorf("explanation = %q, want raw text", res.Explanation)
	}
}

func TestParseResult_ConfidenceClamped(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"above one", `{"diagnosis": "x", "confidence": 1.7, "explanation": "y"}`, 1},
		{"below zero", `{"diagnosis": "x", "confidence": -0.3, "explanation": "y"}`, 0},
		{"in range", `{"diagnosis": "x", "confidence": 0.5, "explanation": "y"}`, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := parseResult(tc.raw)
			if res.Confidence != tc.want {
				t.Errorf("confidence = %v, want %v", res.Confidence, tc.want)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"object in prose", `text {"a":1} tail`, `{"a":1}`, true},
		{"nested", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"\"}\""}`, `{"a":"\"}\""}`, true},
		{"no object", `plain prose`, ``, false},
		{"unbalanced", `{"a":1`, ``, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractObject(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Errorf("extractObject(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}
