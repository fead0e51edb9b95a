package profile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

// LoadSnmprec loads a .snmprec dataset (OID|TYPE|VALUE per line) into the
// store and returns the number of entries loaded. Lines starting with # and
// blank lines are skipped.
func LoadSnmprec(s *Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		oid, datum, err := parseSnmprecLine(line)
		if err != nil {
			return count, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		s.Insert(oid, datum)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read dataset: %w", err)
	}
	return count, nil
}

func parseSnmprecLine(line string) (string, simulate.Datum, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) < 3 {
		return "", simulate.Datum{}, fmt.Errorf("invalid snmprec line %q", line)
	}

	oid := strings.TrimSpace(parts[0])
	typeName := strings.ToLower(strings.TrimSpace(parts[1]))
	raw := strings.TrimSpace(parts[2])

	snmpType := parseSNMPType(typeName)
	value, err := parseValue(snmpType, raw)
	if err != nil {
		return "", simulate.Datum{}, err
	}
	return oid, simulate.Datum{Type: snmpType, Value: value}, nil
}

func parseSNMPType(name string) gosnmp.Asn1BER {
	switch name {
	case "integer", "int", "2":
		return gosnmp.Integer
	case "counter32", "counter", "65":
		return gosnmp.Counter32
	case "gauge32", "gauge", "unsigned", "66":
		return gosnmp.Gauge32
	case "timeticks", "67":
		return gosnmp.TimeTicks
	case "octetstring", "string", "octet", "4":
		return gosnmp.OctetString
	case "objectidentifier", "oid", "6":
		return gosnmp.ObjectIdentifier
	default:
		return gosnmp.OctetString
	}
}

func parseValue(t gosnmp.Asn1BER, raw string) (interface{}, error) {
	switch t {
	case gosnmp.Integer:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned value %q", raw)
		}
		return n, nil
	default:
		return raw, nil
	}
}
