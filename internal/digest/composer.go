// Package digest groups normalized fleet records per vehicle and renders the
// result as the plain-text report handed to the language model.
package digest

import (
	"strings"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/model"
	"github.com/livecodelife/fleetio-digest/internal/util"
)

const resolvedState = "resolved"

// Compose groups issues and reminders under the vehicle they reference, in
// vehicle order. Records pointing at a vehicle outside the list are dropped
// from the grouping but still counted in the totals.
func Compose(vehicles []model.Vehicle, issues []model.Issue, reminders []model.ServiceReminder, start, end time.Time) model.Digest {
	entries := make([]model.VehicleEntry, 0, len(vehicles))
	for _, v := range vehicles {
		e := model.VehicleEntry{
			Vehicle:          v,
			Issues:           []model.Issue{},
			ServiceReminders: []model.ServiceReminder{},
		}
		for _, is := range issues {
			if is.VehicleID == v.ID {
				e.Issues = append(e.Issues, is)
			}
		}
		for _, r := range reminders {
			if r.VehicleID == v.ID {
				e.ServiceReminders = append(e.ServiceReminders, r)
			}
		}
		entries = append(entries, e)
	}

	return model.Digest{
		Period: model.Period{
			StartDate: util.DateOnly(start),
			EndDate:   util.DateOnly(end),
		},
		Vehicles: entries,
		Totals:   computeTotals(vehicles, issues, reminders),
	}
}

func computeTotals(vehicles []model.Vehicle, issues []model.Issue, reminders []model.ServiceReminder) model.Totals {
	t := model.Totals{
		Vehicles:         len(vehicles),
		Issues:           len(issues),
		ServiceReminders: len(reminders),
	}
	for _, is := range issues {
		if isResolved(is) {
			t.ResolvedIssues++
		} else {
			t.OpenIssues++
		}
		if is.IsOverdue {
			t.OverdueIssues++
		}
	}
	return t
}

func isResolved(is model.Issue) bool {
	return strings.ToLower(is.State) == resolvedState
}
