package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateSubmissionEmptyDays(t *testing.T) {
	err := validateSubmission(&SubmitRequest{})
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Violations) != 1 || !strings.Contains(verr.Violations[0], "at least one day") {
		t.Fatalf("unexpected violations: %v", verr.Violations)
	}
}

func TestValidateSubmissionEmptyContributions(t *testing.T) {
	req := &SubmitRequest{
		Days: []DayEntry{{Date: "2024-12-01"}},
	}
	err := validateSubmission(req)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Violations) != 1 || !strings.Contains(verr.Violations[0], "contributions") {
		t.Fatalf("unexpected violations: %v", verr.Violations)
	}
}

func TestValidateSubmissionCollectsAllViolations(t *testing.T) {
	req := &SubmitRequest{
		DateStart: "12/01/2024",
		Days: []DayEntry{
			{Date: "not-a-date", Contributions: []Contribution{
				{Client: "", InputTokens: -1},
			}},
			{Date: "2024-12-02", Contributions: []Contribution{
				{Client: "claude", Cost: decimal.RequireFromString("-0.5")},
			}},
			{Date: "2024-12-02", Contributions: []Contribution{
				{Client: "claude"},
			}},
		},
	}

	err := validateSubmission(req)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	wantFragments := []string{
		"date_start: invalid date",
		"days[0].date: invalid date",
		"days[0].contributions[0].client",
		"days[0].contributions[0]: token and message counts",
		"days[1].contributions[0].cost",
		"days[2].date: duplicate date",
	}
	for _, fragment := range wantFragments {
		found := false
		for _, v := range verr.Violations {
			if strings.Contains(v, fragment) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing violation %q in %v", fragment, verr.Violations)
		}
	}
}

func TestValidateSubmissionAccepts(t *testing.T) {
	req := &SubmitRequest{
		DateStart: "2024-12-01",
		DateEnd:   "2024-12-02",
		Clients:   []string{"claude"},
		Days: []DayEntry{
			{Date: "2024-12-01", Contributions: []Contribution{
				{Client: "claude", Model: "claude-opus", InputTokens: 100, Cost: decimal.RequireFromString("0.01")},
			}},
		},
	}
	if err := validateSubmission(req); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
}

// The submitted set is the union of the summary list and every client that
// shows up in day data; day data wins even when the summary forgot a client.
func TestSubmittedClientsUnion(t *testing.T) {
	req := &SubmitRequest{
		Clients: []string{"claude", "cursor"},
		Days: []DayEntry{
			{Date: "2024-12-01", Contributions: []Contribution{
				{Client: "claude"},
				{Client: "codex"},
			}},
		},
	}

	submitted := submittedClients(req)

	for _, name := range []string{"claude", "cursor", "codex"} {
		if _, ok := submitted[name]; !ok {
			t.Errorf("expected %s in submitted set", name)
		}
	}
	if len(submitted) != 3 {
		t.Fatalf("expected 3 submitted clients, got %d", len(submitted))
	}
}

func TestBuildIncomingGroupsByClientAndModel(t *testing.T) {
	contribs := []Contribution{
		{Client: "claude", Model: "claude-opus", InputTokens: 100, OutputTokens: 50, Cost: decimal.RequireFromString("0.01"), MessageCount: 2},
		{Client: "claude", Model: "claude-sonnet", InputTokens: 30, ReasoningTokens: 20, Cost: decimal.RequireFromString("0.002"), MessageCount: 1},
		{Client: "claude", Model: "claude-opus", CacheReadTokens: 40, Cost: decimal.RequireFromString("0.0005")},
		{Client: "cursor", Model: "gpt-4o", OutputTokens: 10},
	}

	incoming := buildIncoming(contribs)

	if len(incoming) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(incoming))
	}

	claude := incoming["claude"]
	if claude.TotalTokens != 240 {
		t.Errorf("claude total: expected 240, got %d", claude.TotalTokens)
	}
	if claude.MessageCount != 3 {
		t.Errorf("claude messages: expected 3, got %d", claude.MessageCount)
	}
	if want := decimal.RequireFromString("0.0125"); !claude.Cost.Equal(want) {
		t.Errorf("claude cost: expected %s, got %s", want, claude.Cost)
	}
	if len(claude.Models) != 2 {
		t.Fatalf("claude models: expected 2, got %d", len(claude.Models))
	}

	// Repeated (client, model) pairs within one day add together.
	opus := claude.Models["claude-opus"]
	if opus.TotalTokens != 190 || opus.CacheReadTokens != 40 {
		t.Errorf("claude-opus: expected 190 total / 40 cache read, got %+v", opus)
	}

	// Client totals equal the sum over the client's models.
	var modelSum int64
	for _, usage := range claude.Models {
		modelSum += usage.TotalTokens
	}
	if modelSum != claude.TotalTokens {
		t.Errorf("client total %d != sum over models %d", claude.TotalTokens, modelSum)
	}
}

func TestSubmissionWarningsForInactiveDeclaredClient(t *testing.T) {
	req := &SubmitRequest{
		Clients: []string{"claude", "cursor"},
		Days: []DayEntry{
			{Date: "2024-12-01", Contributions: []Contribution{{Client: "claude"}}},
		},
	}

	warnings := submissionWarnings(req)

	if len(warnings) != 1 || !strings.Contains(warnings[0], `"cursor"`) {
		t.Fatalf("expected one warning about cursor, got %v", warnings)
	}
}

func TestSubmittedDateSpan(t *testing.T) {
	req := &SubmitRequest{
		Days: []DayEntry{
			{Date: "2024-12-03"},
			{Date: "2024-12-01"},
			{Date: "2024-12-02"},
		},
	}
	first, last := submittedDateSpan(req)
	if first != "2024-12-01" || last != "2024-12-03" {
		t.Fatalf("expected span 2024-12-01..2024-12-03, got %s..%s", first, last)
	}
}
