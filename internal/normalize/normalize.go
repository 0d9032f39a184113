// Package normalize flattens loosely-typed API payloads into tabular row
// sets that the store layer can load as-is.
package normalize

import (
	"fmt"
	"sort"
)

// Row is a single flat record. Keys are column names, values are whatever
// the API returned (scalars, or arrays kept verbatim).
type Row map[string]interface{}

// RowSet is an ordered sequence of flat rows sharing an inferred schema.
// Columns is the union of fields seen across all rows, in first-seen order.
// A row missing a column holds a nil cell for it.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.Rows)
}

// Ints extracts an integer column, skipping rows where the column is
// missing or not numeric. JSON numbers arrive as float64.
func (rs *RowSet) Ints(column string) []int {
	var out []int
	for _, row := range rs.Rows {
		switch v := row[column].(type) {
		case float64:
			out = append(out, int(v))
		case int:
			out = append(out, v)
		case int64:
			out = append(out, int(v))
		}
	}
	return out
}

// Flatten converts nested JSON objects into a flat RowSet. Nested object
// fields become independently addressable columns named by their path
// ("area.name"). Arrays and scalars are kept as-is. The column set is the
// union across all input records, in first-seen order (keys within a record
// are walked sorted, so the schema is deterministic). Row order matches
// input order.
//
// If dedupeKey is non-empty, rows sharing the same value for that key keep
// only the first occurrence. Rows lacking the key entirely are never
// deduplicated against each other.
func Flatten(records []map[string]interface{}, dedupeKey string) *RowSet {
	rs := &RowSet{}
	seenCols := make(map[string]bool)
	seenKeys := make(map[string]bool)

	for _, rec := range records {
		row := make(Row)
		var cols []string
		flattenInto(row, &cols, "", rec)

		if dedupeKey != "" {
			if v, ok := row[dedupeKey]; ok {
				key := fmt.Sprintf("%v", v)
				if seenKeys[key] {
					continue
				}
				seenKeys[key] = true
			}
		}

		for _, col := range cols {
			if !seenCols[col] {
				seenCols[col] = true
				rs.Columns = append(rs.Columns, col)
			}
		}
		rs.Rows = append(rs.Rows, row)
	}

	return rs
}

// flattenInto walks obj depth-first with sorted keys, writing leaf values
// into row and appending column names to cols in visit order.
func flattenInto(row Row, cols *[]string, prefix string, obj map[string]interface{}) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := obj[k].(map[string]interface{}); ok {
			flattenInto(row, cols, name, nested)
			continue
		}
		row[name] = obj[k]
		*cols = append(*cols, name)
	}
}
