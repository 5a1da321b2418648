package cache

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// TimestampSource extracts the creation time of a stored value.
// ok is false when the value carries no usable timestamp.
type TimestampSource interface {
	Timestamp(value string) (t time.Time, ok bool)
}

// TimestampFunc adapts a function to TimestampSource.
type TimestampFunc func(value string) (time.Time, bool)

// Timestamp calls f(value).
func (f TimestampFunc) Timestamp(value string) (time.Time, bool) {
	return f(value)
}

// TimestampField reads one top-level field of a JSON object.
type TimestampField struct {
	Name  string
	Parse func(gjson.Result) (time.Time, bool)
}

// fieldTimestamps tries each field in order, then the JWT fallback.
type fieldTimestamps struct {
	fields []TimestampField
	jwt    bool
}

// DefaultTimestampFields is the fixed lookup order: "timestamp" as epoch
// milliseconds, then "createdAt" as an ISO-8601 date.
func DefaultTimestampFields() []TimestampField {
	return []TimestampField{
		{Name: "timestamp", Parse: parseEpochMillis},
		{Name: "createdAt", Parse: parseISODate},
	}
}

// DefaultTimestamps reads DefaultTimestampFields from JSON objects and the
// "iat" claim from bare JWT values such as stored auth tokens.
func DefaultTimestamps() TimestampSource {
	return NewFieldTimestamps(DefaultTimestampFields(), true)
}

// NewFieldTimestamps builds a TimestampSource from an ordered field list.
// When jwtFallback is set, values shaped like a JWT yield their "iat" claim.
func NewFieldTimestamps(fields []TimestampField, jwtFallback bool) TimestampSource {
	return &fieldTimestamps{fields: fields, jwt: jwtFallback}
}

func (f *fieldTimestamps) Timestamp(value string) (time.Time, bool) {
	doc := gjson.Parse(value)
	if doc.IsObject() {
		for _, field := range f.fields {
			r := doc.Get(gjson.Escape(field.Name))
			if !r.Exists() {
				continue
			}
			if t, ok := field.Parse(r); ok {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if f.jwt {
		return jwtIssuedAt(value)
	}
	return time.Time{}, false
}

func parseEpochMillis(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.Number:
		if ms := r.Int(); ms > 0 {
			return time.UnixMilli(ms), true
		}
	case gjson.String:
		// Some callers store an ISO string under "timestamp".
		return parseISODate(r)
	}
	return time.Time{}, false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseISODate(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	case gjson.Number:
		if ms := r.Int(); ms > 0 {
			return time.UnixMilli(ms), true
		}
	}
	return time.Time{}, false
}

func jwtIssuedAt(value string) (time.Time, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if strings.Count(value, ".") != 2 {
		return time.Time{}, false
	}
	token, _, err := jwt.NewParser().ParseUnverified(value, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	iat, err := token.Claims.GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}

// ageOf returns how old value is at now. Values without a timestamp, or
// stamped in the future, are treated as brand new (age 0).
func ageOf(ts TimestampSource, value string, now time.Time) time.Duration {
	t, ok := ts.Timestamp(value)
	if !ok {
		return 0
	}
	if age := now.Sub(t); age > 0 {
		return age
	}
	return 0
}
