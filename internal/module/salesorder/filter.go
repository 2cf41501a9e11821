package salesorder

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
)

// Supported date_filter shortcuts.
const (
	DateToday      = "today"
	DateYesterday  = "yesterday"
	DateLast7Days  = "last_7_days"
	DateLast30Days = "last_30_days"
)

// Stored field names the listing filters on.
const (
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	fieldOrderNumber = "katana_order_number"
	fieldStatus      = "status"
	fieldDCLStatus   = "dcl_status"
	fieldOrderData   = "katana_order_data"
	fieldRows        = "sales_order_rows"
)

// DateFilters lists the shortcuts with their display labels.
var DateFilters = []domain.DateFilterOption{
	{Value: DateToday, Label: "Today"},
	{Value: DateYesterday, Label: "Yesterday"},
	{Value: DateLast7Days, Label: "Last 7 Days"},
	{Value: DateLast30Days, Label: "Last 30 Days"},
}

// timestampLayouts are tried in order for start_date and end_date. Layouts
// without an offset are read in the location of "now".
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Filter is a MongoDB query built from listing criteria.
type Filter struct {
	// Query is ordered so that equal criteria marshal to equal bytes.
	Query bson.D
	// Dropped holds the inputs that could not be turned into a condition.
	Dropped []error
}

// BuildFilter translates listing criteria into a query. It is a pure
// function of its arguments; now also fixes the location of naive timestamps.
//
// The created_at condition comes from date_filter, unless both start_date and
// end_date are given and parse, in which case they replace it with an
// inclusive range. An unknown shortcut adds nothing.
func BuildFilter(c domain.SalesOrderCriteria, now time.Time) Filter {
	var f Filter

	created := dateShortcut(c.DateFilter, now)

	if c.StartDate != "" && c.EndDate != "" {
		start, errStart := parseTimestamp(c.StartDate, now.Location())
		end, errEnd := parseTimestamp(c.EndDate, now.Location())
		switch {
		case errStart != nil:
			f.Dropped = append(f.Dropped, fmt.Errorf("start_date: %w", errStart))
		case errEnd != nil:
			f.Dropped = append(f.Dropped, fmt.Errorf("end_date: %w", errEnd))
		default:
			created = bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}
		}
	}

	if created != nil {
		f.Query = append(f.Query, bson.E{Key: fieldCreatedAt, Value: created})
	}

	if n := strings.TrimSpace(c.OrderNumber); n != "" {
		f.Query = append(f.Query, bson.E{Key: fieldOrderNumber, Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(n)},
			{Key: "$options", Value: "i"},
		}})
	}

	if c.Status != "" {
		f.Query = append(f.Query, bson.E{Key: fieldStatus, Value: c.Status})
	}
	if c.DCLStatus != "" {
		f.Query = append(f.Query, bson.E{Key: fieldDCLStatus, Value: c.DCLStatus})
	}

	if f.Query == nil {
		f.Query = bson.D{}
	}
	return f
}

func dateShortcut(name string, now time.Time) bson.D {
	switch name {
	case DateToday:
		start, end := dayBounds(now)
		return bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}
	case DateYesterday:
		start, end := dayBounds(now.Add(-24 * time.Hour))
		return bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}
	case DateLast7Days:
		return bson.D{{Key: "$gte", Value: now.Add(-7 * 24 * time.Hour)}}
	case DateLast30Days:
		return bson.D{{Key: "$gte", Value: now.Add(-30 * 24 * time.Hour)}}
	default:
		return nil
	}
}

// dayBounds returns 00:00:00.000000 and 23:59:59.999999 of t's calendar day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	loc := t.Location()
	return time.Date(y, m, d, 0, 0, 0, 0, loc),
		time.Date(y, m, d, 23, 59, 59, 999999000, loc)
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}
