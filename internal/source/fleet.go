package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/livecodelife/fleetio-digest/internal/model"
	"github.com/livecodelife/fleetio-digest/internal/observability"
	"github.com/livecodelife/fleetio-digest/internal/util"
)

// Fetch retrieves the records of one resource kind for the window [start, end].
func (c *Client) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]model.RawRecord, error) {
	switch kind {
	case Vehicles:
		return c.FetchVehicles(ctx, start, end)
	case Issues:
		return c.FetchIssues(ctx, start, end)
	case ServiceReminders:
		return c.FetchServiceReminders(ctx, start, end)
	default:
		return nil, fmt.Errorf("unknown resource kind: %q", string(kind))
	}
}

// FetchVehicles walks the cursor-paginated vehicle list. Only the lower date
// bound is sent to the API and no end filtering is applied, so vehicles
// updated after end are still returned.
func (c *Client) FetchVehicles(ctx context.Context, start, _ time.Time) ([]model.RawRecord, error) {
	log := observability.LoggerFromContext(ctx).With("resource", Vehicles.String())

	perPage := c.cfg.PageSize
	if perPage <= 0 {
		perPage = 100
	}
	params := url.Values{}
	params.Set("filter[updated_at][gte]", util.DateOnly(start))
	params.Set("per_page", strconv.Itoa(perPage))

	all := make([]model.RawRecord, 0, perPage)
	cursor := ""
	for page := 1; ; page++ {
		q := cloneValues(params)
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		resp, err := c.get(ctx, Vehicles, q)
		if err != nil {
			return nil, fmt.Errorf("fetch vehicles page %d: %w", page, err)
		}
		recs, next := vehiclePage(resp)
		all = append(all, recs...)
		log.Debug("fetched page", "page", page, "records", len(recs), "next_cursor", next)
		if next == "" {
			break
		}
		cursor = next
	}

	c.metrics.AddRecords(Vehicles.String(), len(all))
	log.Info("fetched", "records", len(all))
	return all, nil
}

func (c *Client) FetchIssues(ctx context.Context, start, end time.Time) ([]model.RawRecord, error) {
	return c.fetchFiltered(ctx, Issues, start, end)
}

func (c *Client) FetchServiceReminders(ctx context.Context, start, end time.Time) ([]model.RawRecord, error) {
	return c.fetchFiltered(ctx, ServiceReminders, start, end)
}

// fetchFiltered loads a whole unpaginated collection and keeps the records
// whose updated_at falls inside the window.
func (c *Client) fetchFiltered(ctx context.Context, kind Kind, start, end time.Time) ([]model.RawRecord, error) {
	log := observability.LoggerFromContext(ctx).With("resource", kind.String())

	resp, err := c.get(ctx, kind, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	recs := listRecords(resp)
	kept := FilterByDateRange(recs, start, end)

	c.metrics.AddRecords(kind.String(), len(kept))
	log.Info("fetched", "records", len(recs), "kept", len(kept))
	return kept, nil
}

// FilterByDateRange keeps records whose updated_at calendar date, in the
// timestamp's own offset, lies within [start, end] inclusive. Records with a
// missing or unparseable updated_at are dropped. Order is preserved.
func FilterByDateRange(recs []model.RawRecord, start, end time.Time) []model.RawRecord {
	from, to := util.DateOnly(start), util.DateOnly(end)
	out := make([]model.RawRecord, 0, len(recs))
	for _, r := range recs {
		s, ok := r["updated_at"].(string)
		if !ok {
			continue
		}
		ts, err := util.ParseTime(s)
		if err != nil {
			continue
		}
		// YYYY-MM-DD compares correctly as a string
		d := util.DateOnly(ts)
		if d >= from && d <= to {
			out = append(out, r)
		}
	}
	return out
}

// vehiclePage extracts records and the next cursor from one page envelope.
// Anything other than an object contributes nothing and ends pagination.
func vehiclePage(resp any) ([]model.RawRecord, string) {
	obj, ok := resp.(map[string]any)
	if !ok {
		return nil, ""
	}
	return objects(obj["records"]), cursorString(obj["next_cursor"])
}

// listRecords accepts a bare list or an object with a records list.
func listRecords(resp any) []model.RawRecord {
	switch v := resp.(type) {
	case []any:
		return objects(v)
	case map[string]any:
		return objects(v["records"])
	default:
		return nil
	}
}

// objects keeps only the JSON objects of a decoded list.
func objects(v any) []model.RawRecord {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]model.RawRecord, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func cursorString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
