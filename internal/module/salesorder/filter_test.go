package salesorder

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
)

var fixedNow = time.Date(2025, time.March, 14, 15, 9, 26, 535897000, time.UTC)

// condition returns the value stored under key, or nil.
func condition(t *testing.T, q bson.D, key string) any {
	t.Helper()
	for _, e := range q {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func rangeBounds(t *testing.T, q bson.D) (gte, lte *time.Time) {
	t.Helper()
	c, ok := condition(t, q, fieldCreatedAt).(bson.D)
	if !ok {
		t.Fatalf("created_at condition missing or not a document: %v", q)
	}
	for _, e := range c {
		v, ok := e.Value.(time.Time)
		if !ok {
			t.Fatalf("%s is %T, want time.Time", e.Key, e.Value)
		}
		switch e.Key {
		case "$gte":
			gte = &v
		case "$lte":
			lte = &v
		default:
			t.Fatalf("unexpected operator %s", e.Key)
		}
	}
	return gte, lte
}

func TestBuildFilter_Empty(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{}, fixedNow)

	if f.Query == nil || len(f.Query) != 0 {
		t.Errorf("Query = %#v, want empty non-nil bson.D", f.Query)
	}
	if len(f.Dropped) != 0 {
		t.Errorf("Dropped = %v, want none", f.Dropped)
	}
}

func TestBuildFilter_Today(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{DateFilter: DateToday}, fixedNow)
	gte, lte := rangeBounds(t, f.Query)

	want := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	if gte == nil || !gte.Equal(want) {
		t.Errorf("$gte = %v, want %v", gte, want)
	}
	wantEnd := time.Date(2025, time.March, 14, 23, 59, 59, 999999000, time.UTC)
	if lte == nil || !lte.Equal(wantEnd) {
		t.Errorf("$lte = %v, want %v", lte, wantEnd)
	}
}

func TestBuildFilter_Yesterday(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{DateFilter: DateYesterday}, fixedNow)
	gte, lte := rangeBounds(t, f.Query)

	if !gte.Equal(time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("$gte = %v", gte)
	}
	if !lte.Equal(time.Date(2025, time.March, 13, 23, 59, 59, 999999000, time.UTC)) {
		t.Errorf("$lte = %v", lte)
	}
}

func TestBuildFilter_OpenEndedShortcuts(t *testing.T) {
	tests := []struct {
		shortcut string
		back     time.Duration
	}{
		{DateLast7Days, 7 * 24 * time.Hour},
		{DateLast30Days, 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.shortcut, func(t *testing.T) {
			f := BuildFilter(domain.SalesOrderCriteria{DateFilter: tt.shortcut}, fixedNow)
			gte, lte := rangeBounds(t, f.Query)

			if gte == nil || !gte.Equal(fixedNow.Add(-tt.back)) {
				t.Errorf("$gte = %v, want %v", gte, fixedNow.Add(-tt.back))
			}
			if lte != nil {
				t.Errorf("$lte = %v, want no upper bound", lte)
			}
		})
	}
}

func TestBuildFilter_UnknownShortcutIgnored(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{DateFilter: "last_year"}, fixedNow)

	if len(f.Query) != 0 {
		t.Errorf("Query = %v, want empty", f.Query)
	}
	if len(f.Dropped) != 0 {
		t.Errorf("unknown shortcut should not be reported, got %v", f.Dropped)
	}
}

func TestBuildFilter_ExplicitRangeOverridesShortcut(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{
		DateFilter: DateToday,
		StartDate:  "2024-01-01T00:00:00Z",
		EndDate:    "2024-01-31T23:59:59.5+02:00",
	}, fixedNow)
	gte, lte := rangeBounds(t, f.Query)

	if !gte.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("$gte = %v", gte)
	}
	wantEnd := time.Date(2024, time.January, 31, 21, 59, 59, 500000000, time.UTC)
	if !lte.Equal(wantEnd) {
		t.Errorf("$lte = %v, want %v", lte, wantEnd)
	}
	if _, off := gte.Zone(); off != 0 {
		t.Errorf("Z suffix should give a zero offset, got %d", off)
	}
}

func TestBuildFilter_ExplicitRangeFormats(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := fixedNow.In(loc)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"naive with T", "2024-06-01T08:30:00", time.Date(2024, 6, 1, 8, 30, 0, 0, loc)},
		{"naive with fraction", "2024-06-01T08:30:00.123456", time.Date(2024, 6, 1, 8, 30, 0, 123456000, loc)},
		{"naive with space", "2024-06-01 08:30:00", time.Date(2024, 6, 1, 8, 30, 0, 0, loc)},
		{"minutes only", "2024-06-01T08:30", time.Date(2024, 6, 1, 8, 30, 0, 0, loc)},
		{"date only", "2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, loc)},
		{"space with offset", "2024-06-01 08:30:00+00:00", time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := BuildFilter(domain.SalesOrderCriteria{StartDate: tt.input, EndDate: tt.input}, now)
			if len(f.Dropped) != 0 {
				t.Fatalf("Dropped = %v", f.Dropped)
			}
			gte, _ := rangeBounds(t, f.Query)
			if !gte.Equal(tt.want) {
				t.Errorf("$gte = %v, want %v", gte, tt.want)
			}
		})
	}
}

func TestBuildFilter_BadDateKeepsShortcut(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{
		DateFilter: DateToday,
		StartDate:  "not-a-date",
		EndDate:    "2024-01-31",
	}, fixedNow)

	if len(f.Dropped) != 1 {
		t.Fatalf("Dropped = %v, want one entry", f.Dropped)
	}
	gte, lte := rangeBounds(t, f.Query)
	if !gte.Equal(time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)) || lte == nil {
		t.Errorf("today's window should remain, got %v..%v", gte, lte)
	}
}

func TestBuildFilter_BadDateWithoutShortcut(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{StartDate: "2024-01-01", EndDate: "31/01/2024"}, fixedNow)

	if len(f.Dropped) != 1 {
		t.Fatalf("Dropped = %v, want one entry", f.Dropped)
	}
	if condition(t, f.Query, fieldCreatedAt) != nil {
		t.Errorf("no created_at condition expected, got %v", f.Query)
	}
}

func TestBuildFilter_HalfRangeIgnored(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{StartDate: "2024-01-01"}, fixedNow)

	if len(f.Query) != 0 || len(f.Dropped) != 0 {
		t.Errorf("Query = %v Dropped = %v, want both empty", f.Query, f.Dropped)
	}
}

func TestBuildFilter_KeyOrder(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{
		DCLStatus:   "shipped",
		Status:      "pending",
		OrderNumber: "SO-1",
		DateFilter:  DateLast7Days,
	}, fixedNow)

	want := []string{fieldCreatedAt, fieldOrderNumber, fieldStatus, fieldDCLStatus}
	if len(f.Query) != len(want) {
		t.Fatalf("Query = %v", f.Query)
	}
	for i, k := range want {
		if f.Query[i].Key != k {
			t.Errorf("key %d = %s, want %s", i, f.Query[i].Key, k)
		}
	}
	if f.Query[2].Value != "pending" || f.Query[3].Value != "shipped" {
		t.Errorf("status conditions = %v, %v", f.Query[2].Value, f.Query[3].Value)
	}
}

// orderNumberRegexp compiles the $regex condition the way the server applies it.
func orderNumberRegexp(t *testing.T, q bson.D) *regexp.Regexp {
	t.Helper()
	c, ok := condition(t, q, fieldOrderNumber).(bson.D)
	if !ok {
		t.Fatalf("order number condition missing: %v", q)
	}
	var pattern, flags string
	for _, e := range c {
		switch e.Key {
		case "$regex":
			pattern = e.Value.(string)
		case "$options":
			flags = e.Value.(string)
		}
	}
	if flags != "i" {
		t.Fatalf("$options = %q, want i", flags)
	}
	return regexp.MustCompile("(?i)" + pattern)
}

func TestBuildFilter_OrderNumberSubstring(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{OrderNumber: "  A-100 "}, fixedNow)
	re := orderNumberRegexp(t, f.Query)

	stored := map[string]bool{"a-1001": true, "B-2002": false, "XA-100Z": true}
	for number, want := range stored {
		if got := re.MatchString(number); got != want {
			t.Errorf("match(%q) = %v, want %v", number, got, want)
		}
	}
}

func TestBuildFilter_OrderNumberIsLiteral(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{OrderNumber: "SO.1(2)"}, fixedNow)
	re := orderNumberRegexp(t, f.Query)

	if !re.MatchString("so.1(2)-B") {
		t.Error("literal order number should match")
	}
	if re.MatchString("SOX1(2)") {
		t.Error("'.' must not act as a wildcard")
	}
}

func TestBuildFilter_BlankOrderNumberIgnored(t *testing.T) {
	f := BuildFilter(domain.SalesOrderCriteria{OrderNumber: "   "}, fixedNow)
	if len(f.Query) != 0 {
		t.Errorf("Query = %v, want empty", f.Query)
	}
}

func genCriteria() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", DateToday, DateYesterday, DateLast7Days, DateLast30Days, "bogus"),
		gen.AlphaString(),
		gen.OneConstOf("", "pending", "complete"),
		gen.OneConstOf("", "sent", "failed"),
		gen.OneConstOf("", "2024-01-01", "2024-01-01T10:00:00Z", "garbage"),
		gen.OneConstOf("", "2024-02-01", "2024-02-01 10:00:00"),
	).Map(func(v []interface{}) domain.SalesOrderCriteria {
		return domain.SalesOrderCriteria{
			DateFilter:  v[0].(string),
			OrderNumber: v[1].(string),
			Status:      v[2].(string),
			DCLStatus:   v[3].(string),
			StartDate:   v[4].(string),
			EndDate:     v[5].(string),
		}
	})
}

func genNow() gopter.Gen {
	// 2000-01-01 .. 2040-01-01, with sub-second precision.
	return gen.Int64Range(946684800000000, 2208988800000000).Map(func(us int64) time.Time {
		return time.UnixMicro(us).UTC()
	})
}

func TestProperty_BuildFilter(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("same input and now give byte-identical filters", prop.ForAll(
		func(c domain.SalesOrderCriteria, now time.Time) bool {
			a, err := bson.Marshal(BuildFilter(c, now).Query)
			if err != nil {
				return false
			}
			b, err := bson.Marshal(BuildFilter(c, now).Query)
			if err != nil {
				return false
			}
			return bytes.Equal(a, b)
		},
		genCriteria(),
		genNow(),
	))

	props.Property("today spans the calendar day of now", prop.ForAll(
		func(now time.Time) bool {
			q := BuildFilter(domain.SalesOrderCriteria{DateFilter: DateToday}, now).Query
			if len(q) != 1 {
				return false
			}
			c := q[0].Value.(bson.D)
			start := c[0].Value.(time.Time)
			end := c[1].Value.(time.Time)

			y, m, d := now.Date()
			sy, sm, sd := start.Date()
			ey, em, ed := end.Date()
			return sy == y && sm == m && sd == d &&
				ey == y && em == m && ed == d &&
				start.Hour() == 0 && start.Minute() == 0 && start.Second() == 0 && start.Nanosecond() == 0 &&
				end.Hour() == 23 && end.Minute() == 59 && end.Second() == 59 && end.Nanosecond() == 999999000 &&
				!now.Before(start) && !now.After(end)
		},
		genNow(),
	))

	props.TestingRun(t)
}
