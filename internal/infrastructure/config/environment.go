package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LoadEnvironment reads the base shell environment from a TOML file of
// top-level keys. When the file does not exist the daemon's own environment
// is used.
func LoadEnvironment(path string) (map[string]string, error) {
	if path == "" {
		return processEnvironment(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return processEnvironment(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read environment %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse environment %s: %w", path, err)
	}

	env := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			env[k] = v
		case int64, float64, bool:
			env[k] = fmt.Sprint(v)
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = fmt.Sprint(p)
			}
			env[k] = strings.Join(parts, ":")
		default:
			return nil, fmt.Errorf("environment %s: %s must be a scalar or list", path, k)
		}
	}
	return env, nil
}

func processEnvironment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
