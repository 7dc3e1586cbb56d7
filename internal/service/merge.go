package service

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tgo/usagedash/internal/model"
)

// MergeClientBreakdown merges one day's persisted client breakdown with the
// incoming breakdown for that day. For every client in submitted: the
// incoming entry replaces the existing one, or, when the incoming payload has
// no entry for that client on this date, the existing entry is removed.
// Clients not in submitted are left untouched. A submission always carries a
// client's complete picture for the days it covers, so entries are replaced,
// never added together.
//
// The date-scoped clear-on-absent policy lives only in this function; callers
// never inspect the submitted set themselves.
func MergeClientBreakdown(existing, incoming model.ClientBreakdown, submitted map[string]struct{}) model.ClientBreakdown {
	merged := make(model.ClientBreakdown, len(existing)+len(incoming))
	for name, entry := range existing {
		merged[name] = entry
	}
	for name := range submitted {
		if entry, ok := incoming[name]; ok {
			merged[name] = entry
		} else {
			delete(merged, name)
		}
	}
	return merged
}

// DayTotals holds the recomputed scalar totals for one day.
type DayTotals struct {
	TotalTokens      int64
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64
	TotalCost        decimal.Decimal
	TotalMessages    int64
}

// AggregateDay recomputes a day's totals and its model token index from the
// merged client breakdown. A model used by two clients on the same day
// contributes to one combined index bucket.
func AggregateDay(clients model.ClientBreakdown) (DayTotals, model.ModelTokenIndex) {
	totals := DayTotals{TotalCost: decimal.Zero}
	index := make(model.ModelTokenIndex)
	for _, entry := range clients {
		totals.TotalTokens += entry.TotalTokens
		totals.InputTokens += entry.InputTokens
		totals.OutputTokens += entry.OutputTokens
		totals.CacheReadTokens += entry.CacheReadTokens
		totals.CacheWriteTokens += entry.CacheWriteTokens
		totals.ReasoningTokens += entry.ReasoningTokens
		totals.TotalCost = totals.TotalCost.Add(entry.Cost)
		totals.TotalMessages += entry.MessageCount
		for modelID, usage := range entry.Models {
			index[modelID] += usage.TotalTokens
		}
	}
	return totals, index
}

// ProfileTotals holds the owner-level aggregates recomputed from every daily
// row belonging to the profile.
type ProfileTotals struct {
	DayTotals
	DateStart  *time.Time
	DateEnd    *time.Time
	ActiveDays int
	Sources    []string
	Models     []string
}

// AggregateProfile recomputes owner totals by scanning all of the owner's
// daily rows, not only the ones a submission touched. ActiveDays counts days
// with a positive token total; Sources and Models are the sorted distinct
// names seen across every day's breakdown.
func AggregateProfile(days []model.DailyUsage) ProfileTotals {
	totals := ProfileTotals{DayTotals: DayTotals{TotalCost: decimal.Zero}}
	var sources, models []string

	for i := range days {
		day := &days[i]
		totals.TotalTokens += day.TotalTokens
		totals.InputTokens += day.InputTokens
		totals.OutputTokens += day.OutputTokens
		totals.CacheReadTokens += day.CacheReadTokens
		totals.CacheWriteTokens += day.CacheWriteTokens
		totals.ReasoningTokens += day.ReasoningTokens
		totals.TotalCost = totals.TotalCost.Add(day.TotalCost)
		totals.TotalMessages += day.TotalMessages

		if day.TotalTokens > 0 {
			totals.ActiveDays++
		}

		date := day.Date
		if totals.DateStart == nil || date.Before(*totals.DateStart) {
			d := date
			totals.DateStart = &d
		}
		if totals.DateEnd == nil || date.After(*totals.DateEnd) {
			d := date
			totals.DateEnd = &d
		}

		for name, entry := range day.Clients {
			sources = append(sources, name)
			for modelID := range entry.Models {
				models = append(models, modelID)
			}
		}
	}

	totals.Sources = lo.Uniq(sources)
	totals.Models = lo.Uniq(models)
	sort.Strings(totals.Sources)
	sort.Strings(totals.Models)
	return totals
}
