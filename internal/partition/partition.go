// Package partition splits a sample collection into named groups
// according to a template row's group-by specifier and collapse flag.
// Group order follows collection order and must be preserved through
// execution, because downstream flattening matches results back to
// samples positionally.
package partition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/cytograph/internal/flowdata"
)

// Group is one named subset of a sample collection.
type Group struct {
	Key     string
	Samples flowdata.Collection
}

// Split partitions col. The specifier is either empty (per-sample groups,
// or a single "all" group when collapse is set), a positive integer N
// (chunks of N samples in input order), or a colon-joined list of
// study-variable columns (samples sharing the joined values form one
// group).
func Split(col flowdata.Collection, groupBy string, collapse bool) ([]Group, error) {
	groupBy = strings.TrimSpace(groupBy)

	if groupBy == "" {
		if collapse {
			return []Group{{Key: "all", Samples: col}}, nil
		}
		groups := make([]Group, len(col))
		for i, s := range col {
			groups[i] = Group{Key: s.ID, Samples: flowdata.Collection{s}}
		}
		return groups, nil
	}

	if n, err := strconv.Atoi(groupBy); err == nil {
		return splitChunks(col, n)
	}
	return splitColumns(col, strings.Split(groupBy, ":"))
}

// splitChunks assigns samples to groups of n in input order. A
// single-sample collection always forms exactly one group.
func splitChunks(col flowdata.Collection, n int) ([]Group, error) {
	if n <= 0 {
		return nil, fmt.Errorf("numeric group-by must be positive, got %d", n)
	}
	if len(col) == 1 {
		return []Group{{Key: "1", Samples: col}}, nil
	}

	var groups []Group
	for start := 0; start < len(col); start += n {
		end := start + n
		if end > len(col) {
			end = len(col)
		}
		groups = append(groups, Group{
			Key:     strconv.Itoa(len(groups) + 1),
			Samples: col[start:end],
		})
	}
	return groups, nil
}

// splitColumns groups samples by the colon-joined values of the named
// study-variable columns. Group order is first appearance.
func splitColumns(col flowdata.Collection, cols []string) ([]Group, error) {
	index := make(map[string]int)
	var groups []Group
	for _, s := range col {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			c = strings.TrimSpace(c)
			v, ok := s.Phenotype[c]
			if !ok {
				return nil, fmt.Errorf("sample %q has no study variable %q", s.ID, c)
			}
			parts = append(parts, v)
		}
		key := strings.Join(parts, ":")

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}
	return groups, nil
}
