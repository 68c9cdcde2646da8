package risk

import (
	"encoding/json"
	"fmt"
	"os"
)

// PanelConfig maps a risk level to the ordered list of test codes the
// patient must complete. The mapping is configuration data, not business
// logic: deployments may replace it wholesale.
type PanelConfig map[Level][]string

// DefaultPanels mirrors the clinic's stock catalogue. Panels nest by
// construction: medium extends low, high extends medium.
func DefaultPanels() PanelConfig {
	low := []string{"XRAY_CHEST", "USG_ABD"}
	medium := append(append([]string{}, low...), "ECG", "PFT")
	high := append(append([]string{}, medium...), "TMT", "ECHO_2D")
	return PanelConfig{
		LevelLow:    low,
		LevelMedium: medium,
		LevelHigh:   high,
	}
}

// LoadPanels reads a PanelConfig from a JSON file of the form
// {"low": ["XRAY_CHEST"], "medium": [...], "high": [...]}.
func LoadPanels(path string) (PanelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg PanelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse panel config %s: %w", path, err)
	}
	for _, level := range []Level{LevelLow, LevelMedium, LevelHigh} {
		if len(cfg[level]) == 0 {
			return nil, fmt.Errorf("panel config %s: missing %q panel", path, level)
		}
	}
	return cfg, nil
}

// Panel returns the ordered test codes for a level. An unknown level
// yields nil; callers treat that as configuration error territory.
func (c PanelConfig) Panel(level Level) []string {
	return c[level]
}
