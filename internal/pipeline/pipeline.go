// Package pipeline runs one digest build: fetch every resource, normalize,
// compose and serialize.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/digest"
	"github.com/livecodelife/fleetio-digest/internal/model"
	"github.com/livecodelife/fleetio-digest/internal/normalize"
	"github.com/livecodelife/fleetio-digest/internal/observability"
	"github.com/livecodelife/fleetio-digest/internal/source"
)

const day = 24 * time.Hour

type Result struct {
	Digest model.Digest
	Report string
}

// Window returns the trailing range ending at now. Whole-day windows are
// counted in calendar days so a DST change cannot shift the start date.
func Window(now time.Time, d time.Duration) (start, end time.Time) {
	if d <= 0 {
		d = 7 * day
	}
	if d%day == 0 {
		return now.AddDate(0, 0, -int(d/day)), now
	}
	return now.Add(-d), now
}

// Run fetches the three resources in order and builds the digest. Any
// fetch or serialization error aborts the run with no partial result.
func Run(ctx context.Context, f source.Fetcher, start, end time.Time) (Result, error) {
	log := observability.LoggerFromContext(ctx)
	began := time.Now()

	raw := make(map[source.Kind][]model.RawRecord, 3)
	for _, k := range source.Kinds() {
		log.Info("fetching", "resource", k.String())
		recs, err := f.Fetch(ctx, k, start, end)
		if err != nil {
			return Result{}, fmt.Errorf("fetch %s: %w", k, err)
		}
		raw[k] = recs
		log.Info("retrieved", "resource", k.String(), "records", len(recs))
	}

	vehicles := normalize.Vehicles(raw[source.Vehicles])
	issues := normalize.Issues(raw[source.Issues])
	reminders := normalize.ServiceReminders(raw[source.ServiceReminders])

	d := digest.Compose(vehicles, issues, reminders, start, end)
	log.Info("digest composed", "vehicles", d.Totals.Vehicles, "issues", d.Totals.Issues, "service_reminders", d.Totals.ServiceReminders)

	report, err := digest.Serialize(d)
	if err != nil {
		return Result{}, fmt.Errorf("serialize digest: %w", err)
	}
	log.Info("digest serialized", "bytes", len(report), "took", time.Since(began))
	return Result{Digest: d, Report: report}, nil
}
