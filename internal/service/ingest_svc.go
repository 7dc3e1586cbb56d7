package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tgo/usagedash/internal/model"
	"github.com/tgo/usagedash/internal/pkg/redis"
)

const dateLayout = "2006-01-02"

// Contribution is one client's activity for one model on one day, as
// reported by the local usage scanner.
type Contribution struct {
	Client           string          `json:"client"`
	Model            string          `json:"model"`
	InputTokens      int64           `json:"input_tokens"`
	OutputTokens     int64           `json:"output_tokens"`
	CacheReadTokens  int64           `json:"cache_read_tokens"`
	CacheWriteTokens int64           `json:"cache_write_tokens"`
	ReasoningTokens  int64           `json:"reasoning_tokens"`
	Cost             decimal.Decimal `json:"cost"`
	MessageCount     int64           `json:"message_count"`
}

// DayEntry carries every contribution reported for one calendar date.
type DayEntry struct {
	Date          string         `json:"date"`
	Contributions []Contribution `json:"contributions"`
}

// SubmitRequest is the submission payload produced by the local scanner:
// a declared date range, the summary-level client list and per-day entries.
type SubmitRequest struct {
	DateStart string     `json:"date_start"`
	DateEnd   string     `json:"date_end"`
	Clients   []string   `json:"clients"`
	Days      []DayEntry `json:"days"`
}

// IngestResult reports the outcome of one submission.
type IngestResult struct {
	ProfileID   uuid.UUID       `json:"profile_id"`
	Mode        string          `json:"mode"` // "create" | "merge"
	TotalTokens int64           `json:"total_tokens"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	DateStart   *time.Time      `json:"date_start,omitempty"`
	DateEnd     *time.Time      `json:"date_end,omitempty"`
	ActiveDays  int             `json:"active_days"`
	Clients     []string        `json:"clients"`
	Warnings    []string        `json:"warnings,omitempty"`
}

const (
	ModeCreate = "create"
	ModeMerge  = "merge"
)

// ValidationError carries the structured violation list for a rejected
// payload. No data is read or written when it is returned.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Violations, "; ")
}

type IngestService struct {
	db    *gorm.DB
	cache *redis.ProfileCache
}

// NewIngestService creates the ingestion service. cache may be nil when
// Redis is not configured.
func NewIngestService(db *gorm.DB, cache *redis.ProfileCache) *IngestService {
	return &IngestService{db: db, cache: cache}
}

// Ingest merges one submission into the user's profile as a single unit of
// work. The whole read-merge-write cycle runs in one transaction holding row
// locks on the profile and every touched daily row, so overlapping
// submissions for the same user apply in a strict sequence. A racing
// first-time submission can lose the profile insert to the unique index on
// user_id; that conflict is expected and the submission is retried once
// against the now-existing row.
func (s *IngestService) Ingest(ctx context.Context, userID uuid.UUID, req *SubmitRequest) (*IngestResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	submitted := submittedClients(req)
	result, err := s.ingestOnce(ctx, userID, req, submitted)
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		result, err = s.ingestOnce(ctx, userID, req, submitted)
	}
	if err != nil {
		return nil, err
	}

	result.Warnings = submissionWarnings(req)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Printf("Failed to invalidate profile cache for user %s: %v", userID, err)
		}
	}
	return result, nil
}

func (s *IngestService) ingestOnce(ctx context.Context, userID uuid.UUID, req *SubmitRequest, submitted map[string]struct{}) (*IngestResult, error) {
	var result IngestResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		forUpdate := clause.Locking{Strength: "UPDATE"}

		var profile model.UsageProfile
		err := tx.Clauses(forUpdate).
			Where("user_id = ? AND deleted_at IS NULL", userID).
			First(&profile).Error
		switch {
		case err == nil:
			result.Mode = ModeMerge
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Placeholder with zeroed totals; the unique index on user_id is
			// the backstop when two first submissions race.
			profile = model.UsageProfile{UserID: userID, TotalCost: decimal.Zero}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			result.Mode = ModeCreate
		default:
			return err
		}

		dates := make([]time.Time, 0, len(req.Days))
		for _, day := range req.Days {
			date, _ := time.ParseInLocation(dateLayout, day.Date, time.UTC)
			dates = append(dates, date)
		}

		var existingDays []model.DailyUsage
		if err := tx.Clauses(forUpdate).
			Where("profile_id = ? AND date IN ? AND deleted_at IS NULL", profile.ID, dates).
			Find(&existingDays).Error; err != nil {
			return err
		}
		byDate := make(map[string]*model.DailyUsage, len(existingDays))
		for i := range existingDays {
			byDate[existingDays[i].Date.UTC().Format(dateLayout)] = &existingDays[i]
		}

		for i, day := range req.Days {
			incoming := buildIncoming(day.Contributions)

			row, exists := byDate[day.Date]
			if !exists {
				row = &model.DailyUsage{ProfileID: profile.ID, Date: dates[i]}
			}

			row.Clients = MergeClientBreakdown(row.Clients, incoming, submitted)
			totals, index := AggregateDay(row.Clients)
			row.TotalTokens = totals.TotalTokens
			row.InputTokens = totals.InputTokens
			row.OutputTokens = totals.OutputTokens
			row.CacheReadTokens = totals.CacheReadTokens
			row.CacheWriteTokens = totals.CacheWriteTokens
			row.ReasoningTokens = totals.ReasoningTokens
			row.TotalCost = totals.TotalCost
			row.TotalMessages = totals.TotalMessages
			row.ModelTotals = index

			if exists {
				if err := tx.Save(row).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			}
		}

		// Owner totals are rebuilt from every daily row, not only the ones
		// this submission touched.
		var allDays []model.DailyUsage
		if err := tx.
			Where("profile_id = ? AND deleted_at IS NULL", profile.ID).
			Order("date ASC").
			Find(&allDays).Error; err != nil {
			return err
		}

		totals := AggregateProfile(allDays)
		profile.TotalTokens = totals.TotalTokens
		profile.InputTokens = totals.InputTokens
		profile.OutputTokens = totals.OutputTokens
		profile.CacheReadTokens = totals.CacheReadTokens
		profile.CacheWriteTokens = totals.CacheWriteTokens
		profile.ReasoningTokens = totals.ReasoningTokens
		profile.TotalCost = totals.TotalCost
		profile.TotalMessages = totals.TotalMessages
		profile.DateStart = totals.DateStart
		profile.DateEnd = totals.DateEnd
		profile.ActiveDays = totals.ActiveDays
		profile.SourcesUsed = model.StringList(totals.Sources)
		profile.ModelsUsed = model.StringList(totals.Models)

		firstDay, lastDay := submittedDateSpan(req)
		profile.Fingerprint = Fingerprint(setToSlice(submitted), req.DateStart, req.DateEnd, len(req.Days), firstDay, lastDay)
		now := time.Now().UTC()
		profile.LastSubmissionAt = &now

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		result.ProfileID = profile.ID
		result.TotalTokens = totals.TotalTokens
		result.TotalCost = totals.TotalCost
		result.DateStart = totals.DateStart
		result.DateEnd = totals.DateEnd
		result.ActiveDays = totals.ActiveDays
		result.Clients = totals.Sources
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// submittedClients is the set of client names this request is authoritative
// for: the union of the summary-level list and every client that appears in
// any day's contributions. The per-day data is ground truth; a client present
// there but omitted from the summary list still counts as submitted.
func submittedClients(req *SubmitRequest) map[string]struct{} {
	submitted := make(map[string]struct{}, len(req.Clients))
	for _, name := range req.Clients {
		submitted[name] = struct{}{}
	}
	for _, day := range req.Days {
		for _, contrib := range day.Contributions {
			submitted[contrib.Client] = struct{}{}
		}
	}
	return submitted
}

// buildIncoming folds a day's per-model contributions into a client
// breakdown: contributions group by client, then by model, and repeated
// (client, model) pairs within one day add together. Client totals are the
// sum over that client's models.
func buildIncoming(contribs []Contribution) model.ClientBreakdown {
	incoming := make(model.ClientBreakdown)
	for _, c := range contribs {
		entry, ok := incoming[c.Client]
		if !ok {
			entry = model.ClientUsage{Cost: decimal.Zero, Models: make(map[string]model.ModelUsage)}
		}

		usage := entry.Models[c.Model]
		usage.InputTokens += c.InputTokens
		usage.OutputTokens += c.OutputTokens
		usage.CacheReadTokens += c.CacheReadTokens
		usage.CacheWriteTokens += c.CacheWriteTokens
		usage.ReasoningTokens += c.ReasoningTokens
		usage.TotalTokens += c.InputTokens + c.OutputTokens + c.CacheReadTokens + c.CacheWriteTokens + c.ReasoningTokens
		usage.Cost = usage.Cost.Add(c.Cost)
		usage.MessageCount += c.MessageCount
		entry.Models[c.Model] = usage

		entry.InputTokens += c.InputTokens
		entry.OutputTokens += c.OutputTokens
		entry.CacheReadTokens += c.CacheReadTokens
		entry.CacheWriteTokens += c.CacheWriteTokens
		entry.ReasoningTokens += c.ReasoningTokens
		entry.TotalTokens += c.InputTokens + c.OutputTokens + c.CacheReadTokens + c.CacheWriteTokens + c.ReasoningTokens
		entry.Cost = entry.Cost.Add(c.Cost)
		entry.MessageCount += c.MessageCount
		incoming[c.Client] = entry
	}
	return incoming
}

func validateSubmission(req *SubmitRequest) error {
	var violations []string

	if len(req.Days) == 0 {
		violations = append(violations, "days: at least one day entry is required")
	}

	for _, field := range []struct{ name, value string }{
		{"date_start", req.DateStart},
		{"date_end", req.DateEnd},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseInLocation(dateLayout, field.value, time.UTC); err != nil {
			violations = append(violations, fmt.Sprintf("%s: invalid date %q, expected YYYY-MM-DD", field.name, field.value))
		}
	}

	seen := make(map[string]bool, len(req.Days))
	for i, day := range req.Days {
		if _, err := time.ParseInLocation(dateLayout, day.Date, time.UTC); err != nil {
			violations = append(violations, fmt.Sprintf("days[%d].date: invalid date %q, expected YYYY-MM-DD", i, day.Date))
		} else if seen[day.Date] {
			violations = append(violations, fmt.Sprintf("days[%d].date: duplicate date %s", i, day.Date))
		}
		seen[day.Date] = true

		if len(day.Contributions) == 0 {
			violations = append(violations, fmt.Sprintf("days[%d].contributions: at least one contribution is required", i))
		}
		for j, c := range day.Contributions {
			if c.Client == "" {
				violations = append(violations, fmt.Sprintf("days[%d].contributions[%d].client: client name is required", i, j))
			}
			if c.InputTokens < 0 || c.OutputTokens < 0 || c.CacheReadTokens < 0 ||
				c.CacheWriteTokens < 0 || c.ReasoningTokens < 0 || c.MessageCount < 0 {
				violations = append(violations, fmt.Sprintf("days[%d].contributions[%d]: token and message counts must be non-negative", i, j))
			}
			if c.Cost.IsNegative() {
				violations = append(violations, fmt.Sprintf("days[%d].contributions[%d].cost: cost must be non-negative", i, j))
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// submissionWarnings reports non-fatal oddities, currently clients declared
// at the summary level that reported no activity on any submitted day.
func submissionWarnings(req *SubmitRequest) []string {
	active := make(map[string]bool)
	for _, day := range req.Days {
		for _, contrib := range day.Contributions {
			active[contrib.Client] = true
		}
	}

	var warnings []string
	for _, name := range req.Clients {
		if !active[name] {
			warnings = append(warnings, fmt.Sprintf("client %q was declared but reported no activity; its entries for the submitted dates were cleared", name))
		}
	}
	return warnings
}

func submittedDateSpan(req *SubmitRequest) (first, last string) {
	dates := make([]string, 0, len(req.Days))
	for _, day := range req.Days {
		dates = append(dates, day.Date)
	}
	sort.Strings(dates)
	if len(dates) == 0 {
		return "", ""
	}
	return dates[0], dates[len(dates)-1]
}

func setToSlice(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}
