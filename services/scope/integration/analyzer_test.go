package integration

import (
	"strings"
	"testing"

	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

func emailFlowSignals() *signals.FlowSignals {
	return &signals.FlowSignals{
		FilePath:  "notify_flow.py",
		ClassName: "NotifyFlow",
		Class: signals.ClassSignal{
			Name: "NotifyFlow",
			Methods: []signals.MethodSignal{
				{Name: "draft_summary"},
				{Name: "send_email_report"},
			},
		},
		External: signals.ExternalInteractions{
			WritesFiles: true,
			Services: []signals.ExternalService{
				{Name: "OpenAI", EnvVar: "OPENAI_API_KEY", Operations: []string{"completion"}},
			},
		},
	}
}

func findIntegration(a *Analysis, service string) *Point {
	for i := range a.Points {
		if a.Points[i].Service == service {
			return &a.Points[i]
		}
	}
	return nil
}

func TestAnalyze_MergesSources(t *testing.T) {
	cfg := &config.Result{
		Integrations: config.IntegrationSummary{
			Tools:        []string{"SerperDevTool"},
			LLMProviders: []string{"openai"},
		},
	}

	analysis := NewAnalyzer().Analyze(emailFlowSignals(), cfg)

	// "OpenAI" from signals and "openai" from config must merge into one
	// point (case-insensitive service key).
	openaiCount := 0
	for _, p := range analysis.Points {
		if strings.EqualFold(p.Service, "openai") {
			openaiCount++
		}
	}
	if openaiCount != 1 {
		t.Errorf("openai points = %d, want 1 after merge", openaiCount)
	}

	openai := findIntegration(analysis, "OpenAI")
	if openai == nil {
		t.Fatalf("no OpenAI point in %+v", analysis.Points)
	}
	if openai.Reliability.FailureImpact != CriticalityCritical {
		t.Errorf("openai failure impact = %q, want critical", openai.Reliability.FailureImpact)
	}
	found := false
	for _, v := range openai.Config.EnvVars {
		if v == "OPENAI_API_KEY" {
			found = true
		}
	}
	if !found {
		t.Errorf("env vars = %v, want OPENAI_API_KEY", openai.Config.EnvVars)
	}

	if findIntegration(analysis, "SerperDevTool") == nil {
		t.Error("tool from config missing")
	}
}

func TestAnalyze_MethodNamePatterns(t *testing.T) {
	analysis := NewAnalyzer().Analyze(emailFlowSignals(), nil)

	smtp := findIntegration(analysis, "SMTP")
	if smtp == nil {
		t.Fatalf("no SMTP point inferred from send_email_report in %+v", analysis.Points)
	}
	if smtp.Type != TypeMessaging {
		t.Errorf("type = %q, want messaging", smtp.Type)
	}
	wantVars := map[string]bool{"SMTP_HOST": false, "SMTP_USER": false, "SMTP_PASSWORD": false}
	for _, v := range smtp.Config.EnvVars {
		if _, ok := wantVars[v]; ok {
			wantVars[v] = true
		}
	}
	for v, seen := range wantVars {
		if !seen {
			t.Errorf("missing inferred env var %s", v)
		}
	}
	if len(smtp.Operations) != 1 || smtp.Operations[0].Name != "send_email_report" {
		t.Errorf("operations = %+v", smtp.Operations)
	}
	if smtp.Operations[0].CRUD != CRUDCreate {
		t.Errorf("crud = %q, want create for send", smtp.Operations[0].CRUD)
	}
}

func TestAnalyze_FileSystemFromSignals(t *testing.T) {
	analysis := NewAnalyzer().Analyze(emailFlowSignals(), nil)

	fs := findIntegration(analysis, "file system")
	if fs == nil {
		t.Fatalf("no file system point in %+v", analysis.Points)
	}
	if fs.Type != TypeFileSystem {
		t.Errorf("type = %q, want file_system", fs.Type)
	}
}

func TestDeriveRisks(t *testing.T) {
	points := []Point{
		{
			Service:     "OpenAI",
			Operations:  []Operation{{Name: "completion", Criticality: CriticalityCritical}},
			Reliability: Reliability{FailureImpact: CriticalityCritical},
			Security:    Security{AuthMethod: "api_key", DataClassification: "confidential"},
		},
		{
			Service:     "legacy db",
			Reliability: Reliability{FailureImpact: CriticalityMedium, ResponseTimeMillis: 8000},
			Security:    Security{AuthMethod: "none", DataClassification: "confidential"},
		},
		{
			Service:     "public docs",
			Reliability: Reliability{FailureImpact: CriticalityLow},
			Security:    Security{AuthMethod: "none", DataClassification: "public"},
		},
	}

	risks := deriveRisks(points)
	if len(risks.SinglePointsOfFailure) != 1 || risks.SinglePointsOfFailure[0] != "OpenAI" {
		t.Errorf("SPOF = %v", risks.SinglePointsOfFailure)
	}
	if len(risks.MissingAuth) != 1 || risks.MissingAuth[0] != "legacy db" {
		t.Errorf("missing auth = %v (public data must not flag)", risks.MissingAuth)
	}
	if len(risks.Performance) != 1 || risks.Performance[0] != "legacy db" {
		t.Errorf("performance = %v", risks.Performance)
	}

	recs := deriveRecommendations(risks)
	if len(recs) != 3 {
		t.Fatalf("recommendations = %v, want one per non-empty category", recs)
	}
	if !strings.Contains(recs[0], "OpenAI") {
		t.Errorf("SPOF recommendation = %q", recs[0])
	}
}

func TestDeriveRecommendations_Deterministic(t *testing.T) {
	risks := Risks{MissingAuth: []string{"legacy db"}}
	first := deriveRecommendations(risks)
	second := deriveRecommendations(risks)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Errorf("recommendations not deterministic: %v vs %v", first, second)
	}
}

func TestWithProfiles_Override(t *testing.T) {
	custom := []Profile{{
		Match: "openai",
		Type:  TypeAPI,
		Reliability: Reliability{
			Availability: 0.5, FailureImpact: CriticalityLow,
		},
		Security: Security{AuthMethod: "api_key", DataClassification: "public"},
	}}

	analysis := NewAnalyzer(WithProfiles(custom)).Analyze(emailFlowSignals(), nil)
	openai := findIntegration(analysis, "OpenAI")
	if openai == nil {
		t.Fatal("no OpenAI point")
	}
	if openai.Reliability.Availability != 0.5 {
		t.Errorf("availability = %v, want overridden 0.5", openai.Reliability.Availability)
	}
	if openai.Reliability.FailureImpact != CriticalityLow {
		t.Errorf("impact = %q, want overridden low", openai.Reliability.FailureImpact)
	}
}

func TestLookupProfile_Fallback(t *testing.T) {
	p := lookupProfile(DefaultProfiles(), "totally unknown service")
	if p.Reliability.Availability != fallbackProfile.Reliability.Availability {
		t.Errorf("fallback not applied: %+v", p)
	}
}
