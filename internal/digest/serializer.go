package digest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livecodelife/fleetio-digest/internal/model"
	"github.com/livecodelife/fleetio-digest/internal/util"
)

// ErrInvalidDueDate is returned when a reminder carries a due date that
// cannot be read as a date.
var ErrInvalidDueDate = errors.New("invalid due date")

// Serialize renders d as the line-oriented text report. Output depends only on d.
func Serialize(d model.Digest) (string, error) {
	lines := []string{
		fmt.Sprintf("Fleet Digest: %s to %s", d.Period.StartDate, d.Period.EndDate),
		"",
		"Totals:",
		fmt.Sprintf("- Vehicles: %d", d.Totals.Vehicles),
		fmt.Sprintf("- Issues: %d (Overdue: %d) (Resolved: %d)", d.Totals.Issues, d.Totals.OverdueIssues, d.Totals.ResolvedIssues),
		fmt.Sprintf("- Service Reminders: %d", d.Totals.ServiceReminders),
		"",
	}

	for _, e := range d.Vehicles {
		lines = append(lines, fmt.Sprintf("Vehicle: %s (ID %d)", e.Vehicle.Name, e.Vehicle.ID))

		if len(e.Issues) > 0 {
			lines = append(lines, "- Issues:")
			for _, is := range e.Issues {
				lines = append(lines, "  - "+issueText(is)+issueSuffix(is))
			}
		}

		if len(e.ServiceReminders) > 0 {
			lines = append(lines, "- Service Reminders:")
			for _, r := range e.ServiceReminders {
				due, err := dueClause(r)
				if err != nil {
					return "", fmt.Errorf("vehicle %d reminder %d: %w", e.Vehicle.ID, r.ID, err)
				}
				lines = append(lines, "  - "+r.Name+due)
			}
		}

		lines = append(lines, "")
	}

	return strings.Join(lines, "\n"), nil
}

func issueText(is model.Issue) string {
	if is.Summary != "" {
		return is.Summary
	}
	return is.Description
}

func issueSuffix(is model.Issue) string {
	var s string
	if is.IsOverdue {
		s += " (overdue)"
	}
	if isResolved(is) {
		s += " (resolved)"
	}
	return s
}

func dueClause(r model.ServiceReminder) (string, error) {
	if r.DueDate == "" {
		return "", nil
	}
	t, err := util.ParseTime(r.DueDate)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDueDate, r.DueDate)
	}
	return " due on " + util.DateOnly(t), nil
}
