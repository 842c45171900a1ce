package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads rules on top of base and validates the result.
// Search order: customPath -> ~/.blockfall/config.yaml -> ./configs/blockfall.yaml -> embedded default.
// Keys missing from the file keep base's values.
func Load(customPath string, base Rules) (Rules, error) {
	cfg, err := load(customPath, base)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func load(customPath string, base Rules) (Rules, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return base, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		cfg, err := decode(data, base)
		if err != nil {
			return base, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath("config.yaml"); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if cfg, err := decode(data, base); err == nil {
				return cfg, nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", "blockfall.yaml")); err == nil {
		if cfg, err := decode(data, base); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := decode(defaultRulesYAML, base)
	if err != nil {
		return base, nil // Fallback to base if embed fails
	}
	return cfg, nil
}

// Parse decodes YAML on top of base and validates the result.
func Parse(data []byte, base Rules) (Rules, error) {
	cfg, err := decode(data, base)
	if err != nil {
		return base, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Marshal encodes rules as YAML.
func Marshal(r Rules) ([]byte, error) {
	return yaml.Marshal(r)
}

func decode(data []byte, base Rules) (Rules, error) {
	cfg := base
	cfg.Scoring.LinePoints = append([]int(nil), base.Scoring.LinePoints...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, err
	}
	return cfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".blockfall", filename)
}
