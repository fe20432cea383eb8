// Package normalize maps raw fleet API records onto the fixed model types.
// Every function here is total: missing or malformed fields coerce to zero
// values and the input map is never modified.
package normalize

import (
	"github.com/livecodelife/fleetio-digest/internal/model"
)

const overdueStatus = "overdue"

func Vehicle(raw model.RawRecord) model.Vehicle {
	return model.Vehicle{
		ID:                    intField(raw, "id"),
		Name:                  strField(raw, "name"),
		VIN:                   strField(raw, "vin"),
		Status:                strField(raw, "vehicle_status_name"),
		GroupName:             strField(raw, "group_name"),
		Make:                  strField(raw, "make"),
		Model:                 strField(raw, "model"),
		Year:                  intField(raw, "year"),
		VehicleTypeName:       strField(raw, "vehicle_type_name"),
		PrimaryMeterValue:     intField(raw, "primary_meter_value"),
		IssuesCount:           intField(raw, "issues_count"),
		ServiceRemindersCount: intField(raw, "service_reminders_count"),
		UpdatedAt:             strField(raw, "updated_at"),
	}
}

func Issue(raw model.RawRecord) model.Issue {
	return model.Issue{
		ID:          intField(raw, "id"),
		VehicleID:   intField(raw, "vehicle_id"),
		Description: strField(raw, "description"),
		Summary:     strField(raw, "summary"),
		State:       strField(raw, "state"),
		DueDate:     strField(raw, "due_date"),
		IsOverdue:   boolField(raw, "overdue"),
		ReportedAt:  strField(raw, "reported_at"),
		CreatedAt:   strField(raw, "created_at"),
		UpdatedAt:   strField(raw, "updated_at"),
		ResolvedAt:  strField(raw, "resolved_at"),
	}
}

// ServiceReminder flags a reminder overdue only on an exact "overdue" status.
func ServiceReminder(raw model.RawRecord) model.ServiceReminder {
	status := strField(raw, "service_reminder_status_name")
	return model.ServiceReminder{
		ID:         intField(raw, "id"),
		VehicleID:  intField(raw, "vehicle_id"),
		Name:       strField(raw, "service_task_name"),
		Status:     status,
		DueDate:    strField(raw, "next_due_at"),
		DueMileage: intField(raw, "next_due_meter_value"),
		IsOverdue:  status == overdueStatus,
		CreatedAt:  strField(raw, "created_at"),
		UpdatedAt:  strField(raw, "updated_at"),
	}
}

// Vehicles accepts []model.RawRecord or []any; anything else yields an empty slice.
func Vehicles(raw any) []model.Vehicle {
	recs := records(raw)
	out := make([]model.Vehicle, 0, len(recs))
	for _, r := range recs {
		out = append(out, Vehicle(r))
	}
	return out
}

func Issues(raw any) []model.Issue {
	recs := records(raw)
	out := make([]model.Issue, 0, len(recs))
	for _, r := range recs {
		out = append(out, Issue(r))
	}
	return out
}

func ServiceReminders(raw any) []model.ServiceReminder {
	recs := records(raw)
	out := make([]model.ServiceReminder, 0, len(recs))
	for _, r := range recs {
		out = append(out, ServiceReminder(r))
	}
	return out
}
