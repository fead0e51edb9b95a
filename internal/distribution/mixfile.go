package distribution

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
)

type mixFile struct {
	Devices map[string]int `yaml:"devices"`
}

// LoadMixFile reads a device mix from a YAML file of the form:
//
//	devices:
//	  cable_modem: 200
//	  switch: 10
func LoadMixFile(path string) (Mix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mix file: %w", err)
	}

	var cfg mixFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse mix yaml: %w", err)
	}
	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("mix file %s declares no devices", path)
	}

	mix := make(Mix, len(cfg.Devices))
	for name, count := range cfg.Devices {
		mix[device.Type(name)] = count
	}
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	return mix, nil
}
