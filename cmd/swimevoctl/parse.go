package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseParameters decodes "name=lower:upper[,name=lower:upper...]".
func parseParameters(s string) (map[string][2]float64, error) {
	out := make(map[string][2]float64)
	for _, part := range strings.Split(s, ",") {
		name, bounds, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q (want name=lower:upper)", part)
		}
		lo, up, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("invalid bounds for %s: %q (want lower:upper)", name, bounds)
		}
		lower, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lower bound for %s: %w", name, err)
		}
		upper, err := strconv.ParseFloat(up, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid upper bound for %s: %w", name, err)
		}
		out[name] = [2]float64{lower, upper}
	}
	return out, nil
}

// parseFloats decodes a comma-separated float list; empty input yields nil.
func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", part, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseNamedFloats decodes "name=value[,name=value...]"; empty input yields
// nil.
func parseNamedFloats(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q (want name=value)", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// parseNamedStrings decodes "name=value[,name=value...]".
func parseNamedStrings(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(part, "=")
		if !ok || value == "" {
			return nil, fmt.Errorf("invalid entry %q (want name=value)", part)
		}
		out[name] = value
	}
	return out, nil
}
