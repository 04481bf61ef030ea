package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy validation errors.
var (
	ErrNoQueryVariants  = errors.New("at least one query variant is required")
	ErrBadQueryVariant  = errors.New("query variant must contain %s placeholders for category and city")
	ErrInvalidCapacity  = errors.New("segment_capacity must be at least 2")
	ErrInvalidDelay     = errors.New("politeness_delay_ms must be non-negative")
	ErrMissingWorksheet = errors.New("base_worksheet is required")
)

// Policy holds run-policy knobs that operators tune without touching the
// environment: query phrasing, pacing, and the segment rotation ceiling.
type Policy struct {
	// QueryVariants are fmt templates expanded with (category, city).
	QueryVariants []string `yaml:"query_variants"`

	PolitenessDelayMS int `yaml:"politeness_delay_ms"`
	RetryPauseMS      int `yaml:"retry_pause_ms"`

	// SegmentCapacity is the row ceiling at which a worksheet segment is
	// considered full and writes rotate to the next suffix.
	SegmentCapacity int    `yaml:"segment_capacity"`
	BaseWorksheet   string `yaml:"base_worksheet"`

	// DefaultCategories is the fallback used when the categories input
	// document is missing or unreadable.
	DefaultCategories []string `yaml:"default_categories"`
}

// DefaultPolicy mirrors the knobs the agent shipped with before they became
// configurable. SegmentCapacity stays below the 500k-row limit Google Sheets
// imposes per worksheet.
func DefaultPolicy() Policy {
	return Policy{
		QueryVariants: []string{
			"%s in %s best",
			"%s in %s near market",
		},
		PolitenessDelayMS: 1000,
		RetryPauseMS:      2000,
		SegmentCapacity:   490000,
		BaseWorksheet:     "Dataset",
		DefaultCategories: []string{"Gym", "Spa", "Restaurant"},
	}
}

// LoadPolicy reads the YAML policy file at path. A missing file yields the
// defaults; a present but unparseable or invalid file is an error, since a
// broken policy is operator error rather than an optional feature.
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p *Policy) Validate() error {
	if len(p.QueryVariants) == 0 {
		return ErrNoQueryVariants
	}
	for _, v := range p.QueryVariants {
		if strings.Count(v, "%s") != 2 {
			return fmt.Errorf("%w: %q", ErrBadQueryVariant, v)
		}
	}
	if p.SegmentCapacity < 2 {
		return ErrInvalidCapacity
	}
	if p.PolitenessDelayMS < 0 {
		return ErrInvalidDelay
	}
	if p.BaseWorksheet == "" {
		return ErrMissingWorksheet
	}
	return nil
}

func (p *Policy) PolitenessDelay() time.Duration {
	return time.Duration(p.PolitenessDelayMS) * time.Millisecond
}

func (p *Policy) RetryPause() time.Duration {
	return time.Duration(p.RetryPauseMS) * time.Millisecond
}
