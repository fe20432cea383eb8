package model

// RawRecord is one vehicle, issue or service reminder exactly as the fleet API
// returned it. Numbers are decoded as json.Number.
type RawRecord = map[string]any

// Vehicle is the normalized representation of a fleet vehicle.
type Vehicle struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	VIN                   string `json:"vin"`
	Status                string `json:"status"`
	GroupName             string `json:"group_name"`
	Make                  string `json:"make"`
	Model                 string `json:"model"`
	Year                  int64  `json:"year"`
	VehicleTypeName       string `json:"vehicle_type_name"`
	PrimaryMeterValue     int64  `json:"primary_meter_value"`
	IssuesCount           int64  `json:"issues_count"`
	ServiceRemindersCount int64  `json:"service_reminders_count"`
	UpdatedAt             string `json:"updated_at"`
}

// Issue is the normalized representation of a reported vehicle issue.
type Issue struct {
	ID          int64  `json:"id"`
	VehicleID   int64  `json:"vehicle_id"`
	Description string `json:"description"`
	Summary     string `json:"summary"`
	State       string `json:"state"`
	DueDate     string `json:"due_date"`
	IsOverdue   bool   `json:"is_overdue"`
	ReportedAt  string `json:"reported_at"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	ResolvedAt  string `json:"resolved_at"`
}

// ServiceReminder is the normalized representation of a scheduled service.
type ServiceReminder struct {
	ID         int64  `json:"id"`
	VehicleID  int64  `json:"vehicle_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DueDate    string `json:"due_date"`
	DueMileage int64  `json:"due_mileage"`
	IsOverdue  bool   `json:"is_overdue"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Period is the inclusive date window a digest covers, as YYYY-MM-DD.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// VehicleEntry groups one vehicle with the issues and reminders that reference it.
type VehicleEntry struct {
	Vehicle          Vehicle           `json:"vehicle"`
	Issues           []Issue           `json:"issues"`
	ServiceReminders []ServiceReminder `json:"service_reminders"`
}

// Totals are computed from the flat input collections, not from the grouping.
type Totals struct {
	Vehicles         int `json:"vehicles"`
	Issues           int `json:"issues"`
	OpenIssues       int `json:"open_issues"`
	OverdueIssues    int `json:"overdue_issues"`
	ResolvedIssues   int `json:"resolved_issues"`
	ServiceReminders int `json:"service_reminders"`
}

// Digest is the composed document handed to the serializer.
type Digest struct {
	Period   Period         `json:"period"`
	Vehicles []VehicleEntry `json:"vehicles"`
	Totals   Totals         `json:"totals"`
}
