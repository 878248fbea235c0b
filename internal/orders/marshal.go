package orders

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-order-gateway/internal/attr"
)

// Stored attribute names. Top-level and item fields are snake_case; address
// fields keep the PascalCase names existing records were written with.
const (
	AttrUserID            = "user_id"
	AttrOrderID           = "order_id"
	AttrAddress           = "address"
	AttrItems             = "items"
	AttrTotalAmount       = "total_amount"
	AttrDeliveryRating    = "delivery_rating"
	AttrStatus            = "status"
	AttrTrackingStatus    = "tracking_status"
	AttrPaymentMethod     = "payment_method"
	AttrStoreID           = "store_id"
	AttrNotes             = "notes"
	AttrCreatedAt         = "created_at"
	AttrPaidAt            = "paid_at"
	AttrDeliveryStartedAt = "delivery_started_at"
	AttrDeliveredAt       = "delivered_at"

	attrSkuID    = "sku_id"
	attrPrice    = "price"
	attrQuantity = "quantity"
)

// timeLayouts are tried in order when reading timestamps back.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
}

// ToAttributes encodes o for storage. Empty strings, nil timestamps and a nil
// address are omitted; numbers are written as decimal text.
func ToAttributes(o Order) attr.Map {
	m := attr.Map{}
	m.SetString(AttrUserID, o.UserID)
	m.SetString(AttrOrderID, o.OrderID)
	m.SetString(AttrStatus, o.Status)
	m.SetString(AttrTrackingStatus, o.TrackingStatus)
	m.SetString(AttrPaymentMethod, o.PaymentMethod)
	m.SetString(AttrStoreID, o.StoreID)
	m.SetString(AttrNotes, o.Notes)

	m[AttrTotalAmount] = attr.Number(o.TotalAmount.String())
	m[AttrDeliveryRating] = attr.Number(strconv.Itoa(o.DeliveryRating))

	setTime(m, AttrCreatedAt, o.CreatedAt)
	setTime(m, AttrPaidAt, o.PaidAt)
	setTime(m, AttrDeliveryStartedAt, o.DeliveryStartedAt)
	setTime(m, AttrDeliveredAt, o.DeliveredAt)

	if o.Address != nil {
		m[AttrAddress] = addressToAttributes(*o.Address)
	}

	items := make(attr.List, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, attr.Map{
			attrSkuID:    attr.String(it.SkuID),
			attrPrice:    attr.Number(it.Price.String()),
			attrQuantity: attr.Number(strconv.Itoa(it.Quantity)),
		})
	}
	m[AttrItems] = items

	return m
}

func addressToAttributes(a Address) attr.Map {
	m := attr.Map{}
	m.SetString("Line1", a.Line1)
	m.SetString("Line2", a.Line2)
	m.SetString("City", a.City)
	m.SetString("State", a.State)
	m.SetString("Country", a.Country)
	m.SetString("Type", a.Type)
	m.SetString("Reference", a.Reference)
	m["Default"] = attr.Bool(a.Default)
	if a.Location != nil {
		m["Location"] = attr.Map{
			"Lat": attr.Number(strconv.FormatFloat(a.Location.Lat, 'f', -1, 64)),
			"Lon": attr.Number(strconv.FormatFloat(a.Location.Lon, 'f', -1, 64)),
		}
	}
	return m
}

func setTime(m attr.Map, key string, t *time.Time) {
	if t != nil {
		m[key] = attr.String(t.UTC().Format(time.RFC3339Nano))
	}
}

// FromAttributes rebuilds an Order from a stored item. It never fails:
// missing or malformed fields come back as their zero value so partially
// populated historical records can still be served.
func FromAttributes(item attr.Map) Order {
	o := Order{
		UserID:            str(item, AttrUserID),
		OrderID:           str(item, AttrOrderID),
		TotalAmount:       safeDecimal(item, AttrTotalAmount),
		DeliveryRating:    safeInt(item, AttrDeliveryRating),
		Status:            str(item, AttrStatus),
		TrackingStatus:    str(item, AttrTrackingStatus),
		PaymentMethod:     str(item, AttrPaymentMethod),
		StoreID:           str(item, AttrStoreID),
		Notes:             str(item, AttrNotes),
		CreatedAt:         SafeParseTime(item, AttrCreatedAt),
		PaidAt:            SafeParseTime(item, AttrPaidAt),
		DeliveryStartedAt: SafeParseTime(item, AttrDeliveryStartedAt),
		DeliveredAt:       SafeParseTime(item, AttrDeliveredAt),
		Items:             []OrderItem{},
	}

	if am, ok := item.GetMap(AttrAddress); ok {
		a := addressFromAttributes(am)
		o.Address = &a
	}

	if list, ok := item.GetList(AttrItems); ok {
		for _, v := range list {
			im, ok := v.(attr.Map)
			if !ok {
				continue
			}
			o.Items = append(o.Items, OrderItem{
				SkuID:    str(im, attrSkuID),
				Price:    safeDecimal(im, attrPrice),
				Quantity: safeInt(im, attrQuantity),
			})
		}
	}

	return o
}

func addressFromAttributes(m attr.Map) Address {
	a := Address{
		Line1:     str(m, "Line1"),
		Line2:     str(m, "Line2"),
		City:      str(m, "City"),
		State:     str(m, "State"),
		Country:   str(m, "Country"),
		Type:      str(m, "Type"),
		Reference: str(m, "Reference"),
	}
	a.Default, _ = m.GetBool("Default")
	if lm, ok := m.GetMap("Location"); ok {
		a.Location = &GeoLocation{
			Lat: safeFloat(lm, "Lat"),
			Lon: safeFloat(lm, "Lon"),
		}
	}
	return a
}

// SafeParseTime returns the timestamp under key, or nil when the key is
// absent, not a string, or not in a recognised layout.
func SafeParseTime(m attr.Map, key string) *time.Time {
	s, ok := m.GetString(key)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func str(m attr.Map, key string) string {
	s, _ := m.GetString(key)
	return s
}

func safeDecimal(m attr.Map, key string) decimal.Decimal {
	n, ok := m.GetNumber(key)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func safeInt(m attr.Map, key string) int {
	n, ok := m.GetNumber(key)
	if !ok {
		return 0
	}
	if i, err := strconv.Atoi(n); err == nil {
		return i
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}

func safeFloat(m attr.Map, key string) float64 {
	n, ok := m.GetNumber(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	return f
}
