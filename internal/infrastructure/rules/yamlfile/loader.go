// Package yamlfile loads a multiplier table from a YAML rate card:
//
//	version: spring-2025
//	base_rate: 150.00
//	size:
//	  small: 1.0
//	  medium: 1.5
//	  large: 2.0
//	  extra_large: 3.0
//	workload:
//	  light: 1.0
//	  moderate: 1.3
//	  heavy: 1.6
//	  extreme: 2.0
package yamlfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

type rateCard struct {
	Version  string            `yaml:"version"`
	BaseRate string            `yaml:"base_rate"`
	Size     map[string]string `yaml:"size"`
	Workload map[string]string `yaml:"workload"`
}

func LoadFile(path string) (*pricing.MultiplierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing rules %s: %w", path, err)
	}
	table, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pricing rules %s: %w", path, err)
	}
	return table, nil
}

// Load decodes a rate card and validates it into a table. Numbers are read
// from their literal text so no float rounding touches the rates.
func Load(r io.Reader) (*pricing.MultiplierTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var card rateCard
	if err := dec.Decode(&card); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode pricing rules", err)
	}

	spec := pricing.TableSpec{
		Version:  card.Version,
		Size:     make(map[domain.SizeClass]decimal.Decimal, len(card.Size)),
		Workload: make(map[domain.WorkloadClass]decimal.Decimal, len(card.Workload)),
	}

	base, err := parseRate("base_rate", card.BaseRate)
	if err != nil {
		return nil, err
	}
	spec.BaseRate = base

	for key, raw := range card.Size {
		class, err := domain.ParseSizeClass(key)
		if err != nil {
			return nil, err
		}
		if spec.Size[class], err = parseRate("size."+key, raw); err != nil {
			return nil, err
		}
	}
	for key, raw := range card.Workload {
		class, err := domain.ParseWorkloadClass(key)
		if err != nil {
			return nil, err
		}
		if spec.Workload[class], err = parseRate("workload."+key, raw); err != nil {
			return nil, err
		}
	}

	return pricing.NewTable(spec)
}

func parseRate(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, domain.InvalidInput("decode pricing rules", "%s is required", field)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.InvalidInput("decode pricing rules", "%s: %q is not a number", field, raw)
	}
	return v, nil
}
