package main

import (
	"fmt"
	"strings"
	"time"
)

// SQLite does not enforce declared column types: a declaration is only a
// hint that the engine reduces to one of five type affinities. The mapper
// mirrors that affinity algorithm, then refines exact tokens inside the
// matched family, so that e.g. VARCHAR(255) lands on text rather than a
// fixed-width type.

type affinity int

const (
	affinityInteger affinity = iota
	affinityText
	affinityBlob
	affinityReal
	affinityNumeric
)

// typeAffinity classifies a declared type the way SQLite itself does:
// substring checks applied in a fixed order, empty declaration = BLOB.
func typeAffinity(declared string) affinity {
	dt := strings.ToUpper(strings.TrimSpace(declared))
	switch {
	case strings.Contains(dt, "INT"):
		return affinityInteger
	case strings.Contains(dt, "CHAR"), strings.Contains(dt, "CLOB"), strings.Contains(dt, "TEXT"):
		return affinityText
	case dt == "", strings.Contains(dt, "BLOB"):
		return affinityBlob
	case strings.Contains(dt, "REAL"), strings.Contains(dt, "FLOA"), strings.Contains(dt, "DOUB"):
		return affinityReal
	default:
		return affinityNumeric
	}
}

// baseTypeToken strips parameters and whitespace: "NUMERIC(10, 2)" → "NUMERIC".
func baseTypeToken(declared string) string {
	dt := strings.TrimSpace(declared)
	if idx := strings.IndexByte(dt, '('); idx >= 0 {
		dt = dt[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(dt))
}

// typeParams extracts up to two numeric parameters: "NUMERIC(10,2)" → 10, 2.
func typeParams(declared string) (precision, scale int64) {
	open := strings.IndexByte(declared, '(')
	close := strings.LastIndexByte(declared, ')')
	if open < 0 || close <= open {
		return 0, 0
	}
	parts := strings.Split(declared[open+1:close], ",")
	if len(parts) >= 1 {
		fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &precision)
	}
	if len(parts) >= 2 {
		fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &scale)
	}
	return precision, scale
}

// mapColumnType maps a declared SQLite column type to a PostgreSQL type.
// Pure function; unrecognized tokens return an error so the caller can fail
// the run instead of guessing a lossy default.
func mapColumnType(declared string) (string, error) {
	base := baseTypeToken(declared)

	switch typeAffinity(declared) {
	case affinityInteger:
		// INTEGER columns are the common case and the rowid-alias type;
		// everything else INT-flavored widens to bigint since SQLite
		// integers are 64-bit regardless of the declared width.
		if base == "INTEGER" || base == "INT" {
			return "integer", nil
		}
		return "bigint", nil

	case affinityText:
		return "text", nil

	case affinityBlob:
		return "bytea", nil

	case affinityReal:
		return "double precision", nil

	case affinityNumeric:
		switch base {
		case "NUMERIC", "DECIMAL":
			if precision, scale := typeParams(declared); precision > 0 {
				if scale > 0 {
					return fmt.Sprintf("numeric(%d,%d)", precision, scale), nil
				}
				return fmt.Sprintf("numeric(%d)", precision), nil
			}
			return "numeric", nil
		case "BOOLEAN", "BOOL":
			return "boolean", nil
		case "DATETIME", "TIMESTAMP":
			return "timestamp", nil
		case "DATE":
			return "date", nil
		case "TIME":
			return "time", nil
		case "JSON":
			return "jsonb", nil
		}
	}

	return "", fmt.Errorf("unrecognized SQLite type %q", declared)
}

// resolveColumnTypes maps every column of every table upfront, so an
// unmappable column aborts the run before any DDL touches the target.
func resolveColumnTypes(schema *Schema) error {
	for ti := range schema.Tables {
		t := &schema.Tables[ti]
		for ci := range t.Columns {
			col := &t.Columns[ci]
			pgType, err := mapColumnType(col.DeclaredType)
			if err != nil {
				return &TypeMappingError{
					Table:        t.Name,
					Column:       col.Name,
					DeclaredType: col.DeclaredType,
				}
			}
			col.PGType = pgType
		}
	}
	return nil
}

// Accepted textual layouts for temporal values stored as TEXT in SQLite.
var temporalLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// coerceValue converts a raw SQLite cell value to its PostgreSQL
// equivalent for the mapped target type. NULL passes through; BLOBs stay
// raw bytes; numeric strings pass through for the server to widen; only
// boolean and temporal targets need real conversion because SQLite stores
// them as integers or text.
func coerceValue(val any, pgType string) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch baseTypeToken(pgType) {
	case "BOOLEAN":
		return coerceBool(val)
	case "TIMESTAMP", "DATE", "TIME":
		return coerceTemporal(val, pgType)
	case "BYTEA":
		if s, ok := val.(string); ok {
			return []byte(s), nil
		}
		return val, nil
	default:
		return val, nil
	}
}

// coerceBool interprets SQLite's integer booleans and common textual forms.
func coerceBool(val any) (any, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case int64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("cannot coerce integer %d to boolean", v)
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("cannot coerce float %v to boolean", v)
	case string:
		return coerceBoolString(v)
	case []byte:
		return coerceBoolString(string(v))
	}
	return nil, fmt.Errorf("cannot coerce %T to boolean", val)
}

func coerceBoolString(s string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return nil, fmt.Errorf("cannot coerce %q to boolean", s)
}

// coerceTemporal handles the two ways SQLite applications store date/time
// values: integer epoch milliseconds and ISO-ish text.
func coerceTemporal(val any, pgType string) (any, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case []byte:
		return parseTemporalText(string(v), pgType)
	case string:
		return parseTemporalText(v, pgType)
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", val, pgType)
}

func parseTemporalText(s string, pgType string) (any, error) {
	s = strings.TrimSpace(s)
	if baseTypeToken(pgType) == "TIME" {
		// Bare clock values have no date part to parse; let the server
		// interpret the literal.
		return s, nil
	}
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as %s", s, pgType)
}
