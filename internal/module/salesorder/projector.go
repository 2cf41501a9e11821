package salesorder

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
)

const (
	defaultText     = "N/A"
	defaultCurrency = "USD"
)

var (
	errNilDocument = errors.New("nil document")
	errMissingID   = errors.New("document has no _id")
)

// Project maps a stored order onto the flattened view. A missing, null or
// non-document katana_order_data is read as empty, and a sales_order_rows that
// is not a list is read as an empty list. It fails only when the document
// itself is unusable.
func Project(doc bson.M) (domain.SalesOrder, error) {
	if doc == nil {
		return domain.SalesOrder{}, errNilDocument
	}
	rawID, ok := doc["_id"]
	if !ok || rawID == nil {
		return domain.SalesOrder{}, errMissingID
	}

	data, _ := asDocument(doc[fieldOrderData])
	rows, ok := asList(data[fieldRows])
	if !ok {
		rows = []any{}
	}

	id := idString(rawID)
	number := textOr(doc[fieldOrderNumber], defaultText)

	order := domain.SalesOrder{
		ID:                id,
		MongoID:           id,
		KatanaOrderID:     normalize(doc["katana_order_id"]),
		KatanaOrderNumber: number,
		OrderNumber:       number,
		Status:            textOr(doc[fieldStatus], defaultText),
		DCLStatus:         textOr(doc[fieldDCLStatus], defaultText),
		Currency:          textOr(data["currency"], defaultCurrency),
		ItemsCount:        len(rows),
		LocationID:        normalize(data["location_id"]),
		CreatedAt:         normalize(doc[fieldCreatedAt]),
		UpdatedAt:         normalize(doc[fieldUpdatedAt]),
		OrderCreatedDate:  normalize(data["order_created_date"]),
		DeliveryDate:      normalize(data["delivery_date"]),
		KatanaOrderData: domain.OrderData{
			OrderCreatedDate: normalize(data["order_created_date"]),
			DeliveryDate:     normalize(data["delivery_date"]),
			SalesOrderRows:   normalizeList(rows),
		},
	}

	if total, ok := toFloat(data["total"]); ok {
		order.Total = total
		order.KatanaOrderData.Total = &total
	}
	if currency, ok := data["currency"].(string); ok {
		order.KatanaOrderData.Currency = &currency
	}

	return order, nil
}

// malformed reports whether a raw order lacks a usable commercial sub-object:
// katana_order_data is not a document, or it carries sales_order_rows that is
// not an array.
func malformed(doc bson.Raw) bool {
	data, err := doc.LookupErr(fieldOrderData)
	if err != nil || data.Type != bsontype.EmbeddedDocument {
		return true
	}
	rows, err := data.Document().LookupErr(fieldRows)
	if err != nil {
		// Absent rows read as an empty list.
		return false
	}
	return rows.Type != bsontype.Array
}

// rawID renders the _id of a raw document for logs and reports.
func rawID(doc bson.Raw) string {
	v, err := doc.LookupErr("_id")
	if err != nil {
		return "None"
	}
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	return v.String()
}

func asDocument(v any) (map[string]any, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return d, true
	case bson.D:
		m := make(map[string]any, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case bson.A:
		return l, true
	case []any:
		return l, true
	default:
		return nil, false
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(normalize(id))
	}
}

func textOr(v any, fallback string) string {
	switch s := v.(type) {
	case nil:
		return fallback
	case string:
		return s
	default:
		return fmt.Sprint(normalize(s))
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// normalize converts driver-specific values into plain JSON-friendly ones.
func normalize(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case bson.A:
		return normalizeList(x)
	case []any:
		return normalizeList(x)
	default:
		return v
	}
}

func normalizeList(l []any) []any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = normalize(v)
	}
	return out
}
