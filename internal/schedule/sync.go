package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/syncer"
)

// ValidateUID is the key validator used by the match synchronizer.
func ValidateUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return apperr.Missing("uid")
	}
	return nil
}

type dayFetcher interface {
	FetchDay(ctx context.Context, day caldate.Date) ([]Match, int, error)
}

// batchUpserter is satisfied by *syncer.Synchronizer[string, Match].
type batchUpserter interface {
	UpsertAll(ctx context.Context, items []syncer.Item[string, Match]) (syncer.Summary, error)
}

// Syncer pulls one day of the schedule into the match store. Existing
// matches are skipped, never rewritten.
type Syncer struct {
	client dayFetcher
	sync   batchUpserter
	log    *slog.Logger
}

// NewSyncer wires a schedule client to a skip-on-exists synchronizer.
func NewSyncer(client dayFetcher, sync batchUpserter, log *slog.Logger) *Syncer {
	return &Syncer{client: client, sync: sync, log: log}
}

// SyncDay fetches day and upserts every valid match. The report is filled
// even when some records fail; the returned error is the first failure.
func (s *Syncer) SyncDay(ctx context.Context, day caldate.Date) (DayReport, error) {
	report := DayReport{Date: day}

	matches, rejected, err := s.client.FetchDay(ctx, day)
	if err != nil {
		return report, err
	}
	report.Fetched = len(matches) + rejected
	report.Rejected = rejected
	report.Matches = matches

	items := make([]syncer.Item[string, Match], 0, len(matches))
	for _, m := range matches {
		items = append(items, syncer.Item[string, Match]{Key: m.UID, Record: m})
	}

	sum, err := s.sync.UpsertAll(ctx, items)
	report.Inserted = sum.Inserted
	report.Skipped = sum.Skipped
	report.Failed = sum.Failed

	s.log.Info("schedule sync finished", "date", day.String(),
		"fetched", report.Fetched, "rejected", report.Rejected,
		"inserted", report.Inserted, "skipped", report.Skipped, "failed", report.Failed)

	return report, err
}

// SyncWindow syncs from and the following days in order. A failed day does
// not stop the rest; the failures are returned joined.
func (s *Syncer) SyncWindow(ctx context.Context, from caldate.Date, days int) ([]DayReport, error) {
	reports := make([]DayReport, 0, days+1)
	var errs []error
	for i := 0; i <= days; i++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.SyncDay(ctx, from.AddDays(i))
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("syncing %s: %w", report.Date, err))
		}
	}
	return reports, errors.Join(errs...)
}
