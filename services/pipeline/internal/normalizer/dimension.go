package normalizer

import (
	"sort"
	"strings"

	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/table"
)

// mergedRow is one deduplicated dimension row: the natural key plus one
// value per requested column.
type mergedRow struct {
	key    string
	values []*string
}

type mergeGroup struct {
	values []*string
	filled int
}

// mergeByKey groups raw rows by their canonical key. Rows without a key are
// skipped. With first_non_null every column independently takes the first
// non-null value in source order, so one output row can mix source rows.
// With most_complete the single row with the most non-null columns wins and
// ties go to the earliest row.
func mergeByKey(t *table.Table, keyCol string, keyFn func(string) (string, bool), cols []string, policy string) []mergedRow {
	groups := make(map[string]*mergeGroup)
	cur := table.NewCursor(t.Schema)

	for _, row := range t.Rows {
		cur.Reset(row)
		key, ok := keyFn(cur.String(keyCol))
		if !ok {
			continue
		}

		values := make([]*string, len(cols))
		filled := 0
		for i, c := range cols {
			values[i] = text(cur.String(c))
			if values[i] != nil {
				filled++
			}
		}

		g, seen := groups[key]
		if !seen {
			groups[key] = &mergeGroup{values: values, filled: filled}
			continue
		}

		if policy == config.MergeMostComplete {
			if filled > g.filled {
				g.values = values
				g.filled = filled
			}
			continue
		}

		for i, v := range values {
			if g.values[i] == nil && v != nil {
				g.values[i] = v
				g.filled++
			}
		}
	}

	out := make([]mergedRow, 0, len(groups))
	for key, g := range groups {
		out = append(out, mergedRow{key: key, values: g.values})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// text maps blank source text to null.
func text(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// trimmedKey is the key function for identifiers that are not numeric.
func trimmedKey(v string) (string, bool) {
	k := strings.TrimSpace(v)
	return k, k != ""
}
