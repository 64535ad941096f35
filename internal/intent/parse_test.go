package intent

import "testing"

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Hier ist das Ergebnis: {\"a\":1} fertig.", `{"a":1}`, true},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"sag \"hallo\""}`, `{"a":"sag \"hallo\""}`, true},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"unclosed", `{"a":1`, "", false},
		{"no object", "kein JSON hier", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseAnalysisJSON(t *testing.T) {
	out := `Gerne! {"intent":"createDocument","parameters":{"topic":"Pressefreiheit"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document"}`
	a, ok := parseAnalysisJSON(out)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if a.Intent != IntentCreateDocument {
		t.Errorf("intent = %q", a.Intent)
	}
	if a.Parameters["topic"] != "Pressefreiheit" {
		t.Errorf("topic = %v", a.Parameters["topic"])
	}
	if !a.NeedsCoordination {
		t.Error("document intent must need coordination")
	}
}

func TestParseAnalysisJSONNormalizesApproach(t *testing.T) {
	out := `{"intent":"createVisualization","parameters":{},"bestApproach":"Quatsch"}`
	a, ok := parseAnalysisJSON(out)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if a.BestApproach != ApproachCode {
		t.Errorf("garbage approach must derive from intent, got %q", a.BestApproach)
	}
}

func TestScrapeAnalysis(t *testing.T) {
	out := "Meine Analyse:\nintent: generateLearningPlan\ntopic: Europawahl\nrequiresFollowUp: false"
	a, ok := scrapeAnalysis(out)
	if !ok {
		t.Fatal("expected scrape to succeed")
	}
	if a.Intent != IntentGenerateLearningPlan {
		t.Errorf("intent = %q", a.Intent)
	}
	if a.Parameters["topic"] != "Europawahl" {
		t.Errorf("topic = %v", a.Parameters["topic"])
	}
	if a.BestApproach != ApproachLearningPath {
		t.Errorf("approach = %q", a.BestApproach)
	}
}

func TestScrapeAnalysisRejectsUnknownIntent(t *testing.T) {
	if _, ok := scrapeAnalysis("intent: orderPizza\ntopic: Essen"); ok {
		t.Error("unknown intent names must not be scraped")
	}
	if _, ok := scrapeAnalysis("völlig freier Text ohne Felder"); ok {
		t.Error("field-free text must not scrape")
	}
}

func TestDefaultAnalysis(t *testing.T) {
	a := defaultAnalysis()
	if a.Intent != IntentUnknown {
		t.Errorf("intent = %q", a.Intent)
	}
	if !a.RequiresFollowUp || len(a.FollowUpQuestions) == 0 {
		t.Error("safe default must ask a follow-up question")
	}
	if a.NeedsCoordination {
		t.Error("unknown intent must not need coordination")
	}
}

func TestNeedsCoordination(t *testing.T) {
	if NeedsCoordination(IntentSearchInformation) {
		t.Error("search is answered directly")
	}
	if NeedsCoordination(IntentUnknown) {
		t.Error("unknown is answered directly")
	}
	if !NeedsCoordination(IntentGenerateDashboard) {
		t.Error("dashboard generation needs coordination")
	}
}
