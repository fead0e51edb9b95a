package startup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
)

type populationFile struct {
	Population []populationEntry `yaml:"population"`
}

type populationEntry struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// LoadPopulationFile reads an ordered population spec from YAML:
//
//	population:
//	  - type: cable_modem
//	    count: 500
//	  - type: cmts
//	    count: 2
//
// Order matters: port slices are carved in file order.
func LoadPopulationFile(path string) ([]distribution.TypeCount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read population file: %w", err)
	}

	var cfg populationFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse population yaml: %w", err)
	}
	if len(cfg.Population) == 0 {
		return nil, fmt.Errorf("population file %s declares no devices", path)
	}

	specs := make([]distribution.TypeCount, 0, len(cfg.Population))
	for i, e := range cfg.Population {
		dt := device.Type(e.Type)
		if !dt.Valid() {
			return nil, fmt.Errorf("population entry %d: unknown device type %q", i, e.Type)
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("population entry %d: negative count %d", i, e.Count)
		}
		specs = append(specs, distribution.TypeCount{Type: dt, Count: e.Count})
	}
	return specs, nil
}
