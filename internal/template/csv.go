package template

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// columns are the required header names of a CSV gating template.
var columns = []string{
	"alias",
	"pop",
	"parent",
	"dims",
	"gating_method",
	"gating_args",
	"collapseDataForGating",
	"groupBy",
	"preprocessing_method",
	"preprocessing_args",
}

// LoadCSV reads a CSV gating template. The first record must be a header
// naming every required column; column order is free.
func LoadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading template header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("template header is missing required column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i := index[name]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading template row: %w", err)
		}
		rows = append(rows, Row{
			Alias:      field(rec, "alias"),
			Pattern:    field(rec, "pop"),
			Parent:     field(rec, "parent"),
			Dims:       field(rec, "dims"),
			Method:     field(rec, "gating_method"),
			Args:       field(rec, "gating_args"),
			Collapse:   field(rec, "collapseDataForGating"),
			GroupBy:    field(rec, "groupBy"),
			PrepMethod: field(rec, "preprocessing_method"),
			PrepArgs:   field(rec, "preprocessing_args"),
		})
	}
	return rows, nil
}

// LoadCSVFile reads a CSV gating template from disk.
func LoadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}
