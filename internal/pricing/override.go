package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML shape of a pricing override file:
//
//	models:
//	  claude-sonnet-4-5:
//	    input_per_million: 3.00
//	    output_per_million: 15.00
//	    cache_write_per_million: 3.75
//	    cache_read_per_million: 0.30
type overrideFile struct {
	Models map[string]ModelPricing `yaml:"models"`
}

// LoadOverrides merges model prices from a YAML file into the table.
// A missing file is not an error; operators only create one when prices
// change ahead of a release.
func (t *Table) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read pricing overrides: %w", err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse pricing overrides: %w", err)
	}

	for model, p := range f.Models {
		t.Set(model, p)
	}
	return nil
}
