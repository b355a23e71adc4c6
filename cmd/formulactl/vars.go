package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseVars builds an evaluation context from a YAML or JSON file and
// name=value assignments. Assignments override file entries. Values are
// "true", "false" or numbers.
func parseVars(file string, assignments []string) (map[string]any, error) {
	vars := make(map[string]any)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read variables file: %w", err)
		}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("failed to parse variables file %q: %w", file, err)
		}
		if vars == nil {
			vars = make(map[string]any)
		}
	}

	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: want name=value", a)
		}
		v, err := parseScalar(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for variable %q: %w", name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

func parseScalar(raw string) (any, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number or boolean", raw)
	}
	return f, nil
}
