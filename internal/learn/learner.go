package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/match"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/matchflow/matchflow/internal/service"
)

// Learner converts expense-report lines and user feedback into per-vendor
// expense patterns. Pattern mutation for one user is not safe for two
// concurrent learner calls; the unique (user, vendor key) constraint in
// storage turns such races into ErrAlreadyExists conflicts.
type Learner struct {
	store service.Storage
	cfg   config.Engine
	now   func() time.Time
}

// NewLearner creates a pattern learner with the given thresholds.
func NewLearner(store service.Storage, cfg config.Engine) *Learner {
	return &Learner{store: store, cfg: cfg, now: time.Now}
}

// LearnFromReport folds one expense report into the user's patterns and
// returns the number of lines processed. Lines are grouped by vendor key
// first, so N duplicate-vendor lines produce exactly one pattern mutation
// with OccurrenceCount incremented by N.
func (l *Learner) LearnFromReport(ctx context.Context, userID, reportID string) (int, error) {
	report, err := l.store.GetReportByID(ctx, userID, reportID)
	if err != nil {
		return 0, err
	}

	filter := service.ReportFilter{}
	if !filter.Matches(report) {
		return 0, nil
	}

	return l.learnReport(ctx, report)
}

// LearnFromReports folds a batch of reports into the user's patterns and
// returns the total lines processed. Reports fail independently; pattern
// state is re-read per report so repeated touches of the same vendor across
// iterations stay additive instead of conflicting.
func (l *Learner) LearnFromReports(ctx context.Context, userID string, reportIDs []string) (int, error) {
	total := 0
	for _, id := range reportIDs {
		n, err := l.LearnFromReport(ctx, userID, id)
		if err != nil {
			common.LogError(err, "failed to learn from report", common.Fields{
				"user_id":   userID,
				"report_id": id,
			})
			continue
		}
		total += n
	}
	return total, nil
}

// RebuildPatterns discards every pattern of the user and relearns from all
// eligible reports. Used to recover from bad state or threshold changes.
// Returns the number of patterns created.
func (l *Learner) RebuildPatterns(ctx context.Context, userID string) (int, error) {
	deleted, err := l.store.DeletePatternsForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear existing patterns: %w", err)
	}
	slog.Info("rebuilding expense patterns", "user_id", userID, "discarded", deleted)

	reports, err := l.store.GetReports(ctx, userID, service.ReportFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load reports: %w", err)
	}

	for i := range reports {
		if _, err := l.learnReport(ctx, &reports[i]); err != nil {
			common.LogError(err, "failed to relearn report", common.Fields{
				"user_id":   userID,
				"report_id": reports[i].ID,
			})
		}
	}

	patterns, err := l.store.ListPatterns(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count rebuilt patterns: %w", err)
	}
	return len(patterns), nil
}

// RecordConfirm folds a user confirmation into the vendor's pattern,
// creating the pattern on first contact.
func (l *Learner) RecordConfirm(ctx context.Context, userID, vendorKey string) error {
	return l.recordFeedback(ctx, userID, vendorKey, true)
}

// RecordReject folds a user rejection into the vendor's pattern and
// evaluates auto-suppression.
func (l *Learner) RecordReject(ctx context.Context, userID, vendorKey string) error {
	return l.recordFeedback(ctx, userID, vendorKey, false)
}

func (l *Learner) learnReport(ctx context.Context, report *model.ExpenseReport) (int, error) {
	groups := make(map[string][]model.ReportLine)
	order := make([]string, 0, len(report.Lines))

	processed := 0
	for _, line := range report.Lines {
		key := match.ExtractVendorKey(line.Vendor)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], line)
		processed++
	}

	for _, key := range order {
		if err := l.applyGroup(ctx, report, key, groups[key]); err != nil {
			return 0, fmt.Errorf("failed to apply vendor group %q: %w", key, err)
		}
	}

	return processed, nil
}

// applyGroup applies one report's observations for a single vendor key as a
// single pattern mutation.
func (l *Learner) applyGroup(ctx context.Context, report *model.ExpenseReport, vendorKey string, lines []model.ReportLine) error {
	now := l.now()

	pattern, err := l.store.GetPattern(ctx, report.UserID, vendorKey)
	switch {
	case errors.Is(err, common.ErrNotFound):
		pattern = &model.ExpensePattern{
			ID:        uuid.NewString(),
			UserID:    report.UserID,
			VendorKey: vendorKey,
			FirstSeen: now,
			MinAmount: lines[0].Amount,
			MaxAmount: lines[0].Amount,
		}
		l.applyObservations(pattern, report, lines, now)
		if createErr := l.store.CreatePattern(ctx, pattern); createErr != nil {
			if errors.Is(createErr, common.ErrAlreadyExists) {
				// Lost a create race with a concurrent learner; fold into
				// the winner's row instead.
				return l.applyGroup(ctx, report, vendorKey, lines)
			}
			return createErr
		}
		return nil
	case err != nil:
		return err
	}

	l.applyObservations(pattern, report, lines, now)
	return l.store.UpdatePattern(ctx, pattern)
}

// applyObservations folds each line into the running statistics. The plain
// average and min/max are undecayed; the decayed average moves toward each
// observation in proportion to its age-based weight, so recent spending
// dominates.
func (l *Learner) applyObservations(pattern *model.ExpensePattern, report *model.ExpenseReport, lines []model.ReportLine, now time.Time) {
	weight := DecayWeight(MonthsSince(report.ReportDate, now), l.cfg.DecayHalfLifeMonths)

	for _, line := range lines {
		if pattern.OccurrenceCount == 0 {
			pattern.AverageAmount = line.Amount
			pattern.DecayedAverageAmount = line.Amount
			pattern.MinAmount = line.Amount
			pattern.MaxAmount = line.Amount
		} else {
			n := float64(pattern.OccurrenceCount)
			pattern.AverageAmount = (pattern.AverageAmount*n + line.Amount) / (n + 1)
			pattern.DecayedAverageAmount += weight * (line.Amount - pattern.DecayedAverageAmount)

			if line.Amount < pattern.MinAmount {
				pattern.MinAmount = line.Amount
			}
			if line.Amount > pattern.MaxAmount {
				pattern.MaxAmount = line.Amount
			}
		}
		pattern.OccurrenceCount++
	}

	seen := report.ReportDate
	for _, line := range lines {
		if line.Date.After(seen) {
			seen = line.Date
		}
	}
	if seen.After(pattern.LastSeen) {
		pattern.LastSeen = seen
	}
}

func (l *Learner) recordFeedback(ctx context.Context, userID, vendorKey string, confirmed bool) error {
	now := l.now()

	pattern, err := l.store.GetPattern(ctx, userID, vendorKey)
	switch {
	case errors.Is(err, common.ErrNotFound):
		pattern = &model.ExpensePattern{
			ID:        uuid.NewString(),
			UserID:    userID,
			VendorKey: vendorKey,
			FirstSeen: now,
			LastSeen:  now,
		}
		l.applyFeedback(pattern, confirmed)
		if createErr := l.store.CreatePattern(ctx, pattern); createErr != nil {
			if errors.Is(createErr, common.ErrAlreadyExists) {
				return l.recordFeedback(ctx, userID, vendorKey, confirmed)
			}
			return createErr
		}
		return nil
	case err != nil:
		return err
	}

	l.applyFeedback(pattern, confirmed)
	if now.After(pattern.LastSeen) {
		pattern.LastSeen = now
	}
	return l.store.UpdatePattern(ctx, pattern)
}

// applyFeedback increments the decision counts and, after a reject,
// evaluates auto-suppression. Suppression is monotonic: a later confirm
// never clears it.
func (l *Learner) applyFeedback(pattern *model.ExpensePattern, confirmed bool) {
	if confirmed {
		pattern.ConfirmCount++
		return
	}

	pattern.RejectCount++
	if ShouldSuppress(pattern.ConfirmCount, pattern.RejectCount, l.cfg) {
		pattern.IsSuppressed = true
	}
}
