package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tgo/usagedash/internal/model"
)

func day(date string, clients model.ClientBreakdown) model.DailyUsage {
	d, _ := time.ParseInLocation("2006-01-02", date, time.UTC)
	totals, index := AggregateDay(clients)
	return model.DailyUsage{
		Date:             d,
		TotalTokens:      totals.TotalTokens,
		InputTokens:      totals.InputTokens,
		OutputTokens:     totals.OutputTokens,
		CacheReadTokens:  totals.CacheReadTokens,
		CacheWriteTokens: totals.CacheWriteTokens,
		ReasoningTokens:  totals.ReasoningTokens,
		TotalCost:        totals.TotalCost,
		TotalMessages:    totals.TotalMessages,
		Clients:          clients,
		ModelTotals:      index,
	}
}

func TestAggregateDayTotals(t *testing.T) {
	clients := model.ClientBreakdown{
		"claude": {
			InputTokens:  600,
			OutputTokens: 400,
			TotalTokens:  1000,
			Cost:         decimal.RequireFromString("0.1234"),
			MessageCount: 12,
			Models:       map[string]model.ModelUsage{"claude-opus": {TotalTokens: 1000}},
		},
		"cursor": {
			InputTokens:     300,
			OutputTokens:    100,
			CacheReadTokens: 100,
			TotalTokens:     500,
			Cost:            decimal.RequireFromString("0.0566"),
			MessageCount:    3,
			Models:          map[string]model.ModelUsage{"gpt-4o": {TotalTokens: 500}},
		},
	}

	totals, _ := AggregateDay(clients)

	if totals.TotalTokens != 1500 {
		t.Errorf("total tokens: expected 1500, got %d", totals.TotalTokens)
	}
	if totals.InputTokens != 900 || totals.OutputTokens != 500 || totals.CacheReadTokens != 100 {
		t.Errorf("unexpected category totals: %+v", totals)
	}
	if totals.TotalMessages != 15 {
		t.Errorf("total messages: expected 15, got %d", totals.TotalMessages)
	}
	if want := decimal.RequireFromString("0.18"); !totals.TotalCost.Equal(want) {
		t.Errorf("total cost: expected %s, got %s", want, totals.TotalCost)
	}
}

func TestAggregateDayCombinesModelAcrossClients(t *testing.T) {
	clients := model.ClientBreakdown{
		"claude": {
			TotalTokens: 1000,
			Models:      map[string]model.ModelUsage{"claude-sonnet": {TotalTokens: 1000}},
		},
		"cline": {
			TotalTokens: 700,
			Models: map[string]model.ModelUsage{
				"claude-sonnet": {TotalTokens: 400},
				"gpt-4o":        {TotalTokens: 300},
			},
		},
	}

	_, index := AggregateDay(clients)

	if got := index["claude-sonnet"]; got != 1400 {
		t.Errorf("claude-sonnet: expected one combined bucket of 1400, got %d", got)
	}
	if got := index["gpt-4o"]; got != 300 {
		t.Errorf("gpt-4o: expected 300, got %d", got)
	}
}

func TestAggregateDayEmpty(t *testing.T) {
	totals, index := AggregateDay(model.ClientBreakdown{})
	if totals.TotalTokens != 0 || !totals.TotalCost.Equal(decimal.Zero) {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty model index, got %v", index)
	}
}

// Repeated decimal accumulation stays exact; floats would drift here.
func TestAggregateDayCostPrecision(t *testing.T) {
	clients := make(model.ClientBreakdown)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		clients[name] = model.ClientUsage{Cost: decimal.RequireFromString("0.0001")}
	}

	totals, _ := AggregateDay(clients)

	if want := decimal.RequireFromString("0.001"); !totals.TotalCost.Equal(want) {
		t.Fatalf("expected exact %s, got %s", want, totals.TotalCost)
	}
}

func TestAggregateProfile(t *testing.T) {
	days := []model.DailyUsage{
		day("2024-12-01", model.ClientBreakdown{
			"claude": clientEntry(1000, "claude-opus"),
		}),
		day("2024-12-03", model.ClientBreakdown{
			"cursor": clientEntry(500, "gpt-4o"),
			"claude": clientEntry(300, "claude-sonnet"),
		}),
		// A day whose only client reported zero activity does not count as
		// active but still stretches the date span.
		day("2024-12-05", model.ClientBreakdown{
			"codex": {Models: map[string]model.ModelUsage{"o3": {}}},
		}),
	}

	totals := AggregateProfile(days)

	if totals.TotalTokens != 1800 {
		t.Errorf("total tokens: expected 1800, got %d", totals.TotalTokens)
	}
	if totals.ActiveDays != 2 {
		t.Errorf("active days: expected 2, got %d", totals.ActiveDays)
	}
	if totals.DateStart == nil || totals.DateStart.Format("2006-01-02") != "2024-12-01" {
		t.Errorf("date start: expected 2024-12-01, got %v", totals.DateStart)
	}
	if totals.DateEnd == nil || totals.DateEnd.Format("2006-01-02") != "2024-12-05" {
		t.Errorf("date end: expected 2024-12-05, got %v", totals.DateEnd)
	}

	wantSources := []string{"claude", "codex", "cursor"}
	if len(totals.Sources) != len(wantSources) {
		t.Fatalf("sources: expected %v, got %v", wantSources, totals.Sources)
	}
	for i, name := range wantSources {
		if totals.Sources[i] != name {
			t.Errorf("sources[%d]: expected %s, got %s", i, name, totals.Sources[i])
		}
	}

	wantModels := []string{"claude-opus", "claude-sonnet", "gpt-4o", "o3"}
	if len(totals.Models) != len(wantModels) {
		t.Fatalf("models: expected %v, got %v", wantModels, totals.Models)
	}
	for i, name := range wantModels {
		if totals.Models[i] != name {
			t.Errorf("models[%d]: expected %s, got %s", i, name, totals.Models[i])
		}
	}
}

func TestAggregateProfileEmpty(t *testing.T) {
	totals := AggregateProfile(nil)
	if totals.DateStart != nil || totals.DateEnd != nil {
		t.Fatalf("expected nil date span for empty profile, got %v..%v", totals.DateStart, totals.DateEnd)
	}
	if totals.ActiveDays != 0 || totals.TotalTokens != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

// Day totals always equal the field-wise sum over the merged breakdown, and
// profile totals the sum over all days, whichever order merges ran in.
func TestAdditivityAcrossScopes(t *testing.T) {
	d1 := day("2024-12-01", model.ClientBreakdown{
		"claude": clientEntry(1000, "claude-opus"),
		"cursor": clientEntry(500, "gpt-4o"),
	})
	d2 := day("2024-12-02", model.ClientBreakdown{
		"claude": clientEntry(250, "claude-opus"),
	})

	var wantTokens int64
	wantCost := decimal.Zero
	for _, d := range []model.DailyUsage{d1, d2} {
		for _, entry := range d.Clients {
			wantTokens += entry.TotalTokens
			wantCost = wantCost.Add(entry.Cost)
		}
	}

	totals := AggregateProfile([]model.DailyUsage{d1, d2})
	if totals.TotalTokens != wantTokens {
		t.Errorf("profile tokens %d != sum over clients %d", totals.TotalTokens, wantTokens)
	}
	if !totals.TotalCost.Equal(wantCost) {
		t.Errorf("profile cost %s != sum over clients %s", totals.TotalCost, wantCost)
	}
}
