package simulate

import (
	"math"

	"github.com/gosnmp/gosnmp"
)

// Datum is the static profile value for an OID, as loaded from a dataset.
type Datum struct {
	Type  gosnmp.Asn1BER
	Value interface{}
}

// Value is a simulated SNMP value ready to be placed in a response PDU.
// Counters and timeticks carry uint32, gauges carry int32 (some gauge ranges,
// power levels in particular, straddle zero) except static gauge values above
// the int32 range, which stay uint32; integers carry int and strings carry
// string.
type Value struct {
	Type  gosnmp.Asn1BER
	Value interface{}
}

func counter32(v uint64) Value {
	return Value{Type: gosnmp.Counter32, Value: uint32(v % (1 << 32))}
}

func gauge32(v float64, r Range) Value {
	// Round, then clamp again: rounding at a fractional bound may step
	// outside the declared range.
	rounded := r.Clamp(math.Round(r.Clamp(v)))
	return Value{Type: gosnmp.Gauge32, Value: int32(rounded)}
}

func timeticks(v uint64) Value {
	return Value{Type: gosnmp.TimeTicks, Value: uint32(v % (1 << 32))}
}

func octetString(s string) Value {
	return Value{Type: gosnmp.OctetString, Value: s}
}

// Static types the raw profile value according to the datum's SNMP type. It
// is the fallback for unknown behaviors and never fails.
func Static(d Datum) Value {
	switch d.Type {
	case gosnmp.Counter32:
		n, _ := toUint64(d.Value)
		return counter32(n)
	case gosnmp.Gauge32, gosnmp.Uinteger32:
		n, _ := toUint64(d.Value)
		if n > math.MaxUint32 {
			n = math.MaxUint32
		}
		if n <= math.MaxInt32 {
			return Value{Type: gosnmp.Gauge32, Value: int32(n)}
		}
		// keeps the upper half of the gauge range intact; the wire encoder
		// passes uint32 gauges through unchanged
		return Value{Type: gosnmp.Gauge32, Value: uint32(n)}
	case gosnmp.TimeTicks:
		n, _ := toUint64(d.Value)
		return timeticks(n)
	case gosnmp.Integer:
		n, _ := toInt64(d.Value)
		return Value{Type: gosnmp.Integer, Value: int(n)}
	case gosnmp.OctetString:
		if s, ok := d.Value.(string); ok {
			return octetString(s)
		}
		if b, ok := d.Value.([]byte); ok {
			return octetString(string(b))
		}
		return Value{Type: gosnmp.OctetString, Value: d.Value}
	default:
		return Value{Type: d.Type, Value: d.Value}
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > uint64(^uint64(0)>>1) {
			return 0, false
		}
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func toUint64(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case uint32:
		return uint64(x), true
	case uint:
		return uint64(x), true
	case int:
		if x < 0 {
			return 0, true
		}
		return uint64(x), true
	case int32:
		if x < 0 {
			return 0, true
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, true
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, true
		}
		return uint64(x), true
	default:
		return 0, false
	}
}
