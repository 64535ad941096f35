package intent

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the first top-level {...} block in the text,
// found by brace matching that is aware of string literals and escapes.
// Model output is untrusted free text, so a greedy regexp across multiple
// objects would be wrong here.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// rawAnalysis matches the JSON shape the instruction prompt requests.
type rawAnalysis struct {
	Intent            string         `json:"intent"`
	Parameters        map[string]any `json:"parameters"`
	RequiresFollowUp  bool           `json:"requiresFollowUp"`
	FollowUpQuestions []string       `json:"followUpQuestions"`
	BestApproach      string         `json:"bestApproach"`
}

// parseAnalysisJSON is tier one: strict JSON after brace extraction.
func parseAnalysisJSON(text string) (*Analysis, bool) {
	block, ok := ExtractJSONObject(text)
	if !ok {
		return nil, false
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, false
	}
	if raw.Intent == "" {
		return nil, false
	}
	a := &Analysis{
		Intent:            raw.Intent,
		Parameters:        raw.Parameters,
		RequiresFollowUp:  raw.RequiresFollowUp,
		FollowUpQuestions: raw.FollowUpQuestions,
		BestApproach:      normalizeApproach(raw.BestApproach, raw.Intent),
	}
	if a.Parameters == nil {
		a.Parameters = make(map[string]any)
	}
	a.NeedsCoordination = NeedsCoordination(a.Intent)
	return a, true
}

// scrapeAnalysis is tier two: a best-effort line-level key/value scrape
// for output that names the fields without valid JSON. It never fails;
// the caller checks whether an intent was found.
func scrapeAnalysis(text string) (*Analysis, bool) {
	a := &Analysis{
		Intent:     IntentUnknown,
		Parameters: make(map[string]any),
	}
	found := false
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "intent":
			if generationIntents[value] || value == IntentSearchInformation {
				a.Intent = value
				found = true
			}
		case "bestapproach", "approach":
			a.BestApproach = normalizeApproach(value, a.Intent)
		case "requiresfollowup":
			a.RequiresFollowUp = strings.EqualFold(value, "true") || value == "ja"
		case "topic", "thema", "title", "titel":
			a.Parameters["topic"] = value
		case "language", "sprache":
			a.Parameters["language"] = value
		}
	}
	if !found {
		return nil, false
	}
	if a.BestApproach == "" {
		a.BestApproach = normalizeApproach("", a.Intent)
	}
	a.NeedsCoordination = NeedsCoordination(a.Intent)
	return a, true
}

func splitKeyValue(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key := strings.Trim(strings.TrimSpace(line[:idx]), `"'*-`)
	value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"',`)
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// defaultAnalysis is tier three: the safe result when nothing could be
// read from the model output.
func defaultAnalysis() *Analysis {
	return &Analysis{
		Intent:            IntentUnknown,
		Parameters:        make(map[string]any),
		RequiresFollowUp:  true,
		FollowUpQuestions: []string{"Können Sie Ihre Anfrage genauer beschreiben?"},
		BestApproach:      ApproachDocument,
		NeedsCoordination: false,
	}
}
