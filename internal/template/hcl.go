package template

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclTemplate is the root schema of the HCL template form.
type hclTemplate struct {
	Populations []*hclPopulation `hcl:"population,block"`
}

// hclPopulation mirrors one template row as a population block. Attribute
// names match the CSV column names.
type hclPopulation struct {
	Alias      string `hcl:"alias,label"`
	Pattern    string `hcl:"pop,optional"`
	Parent     string `hcl:"parent"`
	Dims       string `hcl:"dims,optional"`
	Method     string `hcl:"gating_method"`
	Args       string `hcl:"gating_args,optional"`
	Collapse   string `hcl:"collapseDataForGating,optional"`
	GroupBy    string `hcl:"groupBy,optional"`
	PrepMethod string `hcl:"preprocessing_method,optional"`
	PrepArgs   string `hcl:"preprocessing_args,optional"`
}

// LoadHCLFile reads the HCL form of a gating template. Blocks map onto
// rows in file order, so both template forms feed the same validator.
func LoadHCLFile(path string) ([]Row, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing template %s: %w", path, diags)
	}

	var tpl hclTemplate
	if diags := gohcl.DecodeBody(file.Body, nil, &tpl); diags.HasErrors() {
		return nil, fmt.Errorf("decoding template %s: %w", path, diags)
	}

	rows := make([]Row, 0, len(tpl.Populations))
	for _, p := range tpl.Populations {
		rows = append(rows, Row{
			Alias:      p.Alias,
			Pattern:    p.Pattern,
			Parent:     p.Parent,
			Dims:       p.Dims,
			Method:     p.Method,
			Args:       p.Args,
			Collapse:   p.Collapse,
			GroupBy:    p.GroupBy,
			PrepMethod: p.PrepMethod,
			PrepArgs:   p.PrepArgs,
		})
	}
	return rows, nil
}
