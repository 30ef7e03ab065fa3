package template

import (
	"strconv"
	"strings"
)

// Validate normalizes raw rows in input order. It rejects aliases carrying
// the path delimiter, coerces the collapse flag, and expands the alias set
// of wildcard (multi-output) rows.
func Validate(rows []Row) ([]ValidatedRow, error) {
	out := make([]ValidatedRow, 0, len(rows))
	for i, r := range rows {
		vr, err := validateRow(i+1, r)
		if err != nil {
			return nil, err
		}
		out = append(out, vr)
	}
	return out, nil
}

// validateRow normalizes a single row. num is the 1-based row number used
// in error reports.
func validateRow(num int, r Row) (ValidatedRow, error) {
	vr := ValidatedRow{Row: r}

	vr.MultiOutput = strings.TrimSpace(r.Pattern) == Wildcard
	if vr.MultiOutput {
		for _, a := range strings.Split(r.Alias, ",") {
			if a = strings.TrimSpace(a); a != "" {
				vr.Aliases = append(vr.Aliases, a)
			}
		}
		if len(vr.Aliases) == 0 {
			return vr, &ValidationError{Row: num, Field: "alias", Msg: "multi-output row has no output names"}
		}
	} else {
		vr.Aliases = []string{strings.TrimSpace(r.Alias)}
	}

	for _, a := range vr.Aliases {
		if a == "" {
			return vr, &ValidationError{Row: num, Field: "alias", Msg: "alias is empty"}
		}
		if strings.Contains(a, PathSep) {
			return vr, &ValidationError{Row: num, Field: "alias", Msg: "alias " + strconv.Quote(a) + " contains the path delimiter " + strconv.Quote(PathSep)}
		}
	}

	collapse := strings.TrimSpace(r.Collapse)
	if collapse != "" {
		v, err := strconv.ParseBool(strings.ToLower(collapse))
		if err != nil {
			return vr, &ValidationError{Row: num, Field: "collapseDataForGating", Msg: "cannot parse " + strconv.Quote(collapse) + " as a boolean"}
		}
		vr.CollapseVal = v
	}

	return vr, nil
}
