package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/digest"
	"github.com/livecodelife/fleetio-digest/internal/model"
	"github.com/livecodelife/fleetio-digest/internal/source"
)

type fakeFetcher struct {
	data  map[source.Kind]string
	fail  source.Kind
	calls []source.Kind
}

func (f *fakeFetcher) Fetch(_ context.Context, k source.Kind, _, _ time.Time) ([]model.RawRecord, error) {
	f.calls = append(f.calls, k)
	if k == f.fail {
		return nil, &source.APIError{Op: "GET " + k.Path(), Status: 401, Err: source.ErrAuthentication}
	}
	var out []model.RawRecord
	if s, ok := f.data[k]; ok {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func TestRunBuildsReport(t *testing.T) {
	f := &fakeFetcher{data: map[source.Kind]string{
		source.Vehicles:         `[{"id":1,"name":"Truck A"},{"id":2,"name":"Van B"}]`,
		source.Issues:           `[{"id":10,"vehicle_id":1,"summary":"Brake noise","state":"open","overdue":true}]`,
		source.ServiceReminders: `[{"id":30,"vehicle_id":2,"service_task_name":"Oil change","next_due_at":"2024-01-20"}]`,
	}}
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	res, err := Run(context.Background(), f, start, end)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(f.calls); got != 3 || f.calls[0] != source.Vehicles {
		t.Fatalf("unexpected fetch order: %v", f.calls)
	}
	for _, want := range []string{
		"Fleet Digest: 2024-01-01 to 2024-01-08",
		"- Issues: 1 (Overdue: 1) (Resolved: 0)",
		"Vehicle: Truck A (ID 1)\n- Issues:\n  - Brake noise (overdue)\n",
		"Vehicle: Van B (ID 2)\n- Service Reminders:\n  - Oil change due on 2024-01-20\n",
	} {
		if !strings.Contains(res.Report, want) {
			t.Fatalf("report missing %q:\n%s", want, res.Report)
		}
	}
	if res.Digest.Totals.OpenIssues != 1 {
		t.Fatalf("unexpected totals: %+v", res.Digest.Totals)
	}
}

func TestRunStopsOnFetchError(t *testing.T) {
	f := &fakeFetcher{fail: source.Issues}
	_, err := Run(context.Background(), f, time.Now(), time.Now())
	if !errors.Is(err, source.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("reminders must not be fetched after a failure, calls=%v", f.calls)
	}
}

func TestRunRejectsBadDueDate(t *testing.T) {
	f := &fakeFetcher{data: map[source.Kind]string{
		source.Vehicles:         `[{"id":1,"name":"Truck A"}]`,
		source.ServiceReminders: `[{"id":30,"vehicle_id":1,"service_task_name":"Oil change","next_due_at":"soon"}]`,
	}}
	_, err := Run(context.Background(), f, time.Now(), time.Now())
	if !errors.Is(err, digest.ErrInvalidDueDate) {
		t.Fatalf("expected ErrInvalidDueDate, got %v", err)
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	start, end := Window(now, 168*time.Hour)
	if !end.Equal(now) || start.Format("2006-01-02") != "2024-03-05" {
		t.Fatalf("unexpected window %s .. %s", start, end)
	}
	start, _ = Window(now, 36*time.Hour)
	if start.Format("2006-01-02 15:04") != "2024-03-10 21:30" {
		t.Fatalf("unexpected partial-day start %s", start)
	}
	start, _ = Window(now, 0)
	if start.Format("2006-01-02") != "2024-03-05" {
		t.Fatalf("zero window should default to a week, got %s", start)
	}
}
