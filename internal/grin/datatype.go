package grin

import (
	"fmt"
	"strings"
	"time"
)

// DataType enumerates the value kinds a property or original ID can hold.
type DataType uint8

const (
	Undefined DataType = iota
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	String
	Date32
	Time32
	Timestamp64
)

var dataTypeNames = [...]string{
	Undefined:   "undefined",
	Int32:       "int32",
	UInt32:      "uint32",
	Int64:       "int64",
	UInt64:      "uint64",
	Float32:     "float",
	Float64:     "double",
	String:      "string",
	Date32:      "date32",
	Time32:      "time32",
	Timestamp64: "timestamp64",
}

func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("datatype(%d)", uint8(d))
}

// Valid reports whether d is a concrete value kind.
func (d DataType) Valid() bool {
	return d > Undefined && d <= Timestamp64
}

// Integral reports whether values of d are stored as integers.
func (d DataType) Integral() bool {
	switch d {
	case Int32, UInt32, Int64, UInt64, Date32, Time32, Timestamp64:
		return true
	}
	return false
}

// ParseDataType parses a datatype name. Names are case-insensitive and
// float32/float64 are accepted as aliases of float/double.
func ParseDataType(s string) (DataType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "", "none":
		return Undefined, nil
	}
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), nil
		}
	}
	return Undefined, fmt.Errorf("unknown datatype %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(b []byte) error {
	dt, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

const (
	millisPerDay = int64(24 * time.Hour / time.Millisecond)
	dateLayout   = "2006-01-02"
	timeLayout   = "15:04:05"
)

// Date is a calendar date stored as days since the Unix epoch.
type Date int32

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	ms := t.UTC().UnixMilli()
	days := ms / millisPerDay
	if ms < 0 && ms%millisPerDay != 0 {
		days--
	}
	return Date(days)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.UnixMilli(int64(d) * millisPerDay).UTC()
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// TimeOfDay is a time of day stored as milliseconds since midnight.
type TimeOfDay int32

// TimeOf keeps the UTC time-of-day component of t.
func TimeOf(t time.Time) TimeOfDay {
	t = t.UTC()
	ms := int64(t.Hour())*3600000 + int64(t.Minute())*60000 + int64(t.Second())*1000 + int64(t.Nanosecond())/1e6
	return TimeOfDay(ms)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

func (t TimeOfDay) String() string {
	return time.UnixMilli(int64(t)).UTC().Format("15:04:05.000")
}

// Timestamp is an instant stored as milliseconds since the Unix epoch.
type Timestamp int64

// TimestampOf converts t to millisecond precision.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time returns the instant in UTC.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}
