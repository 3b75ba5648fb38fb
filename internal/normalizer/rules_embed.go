package normalizer

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/rules.yaml
var rulesYAML []byte

// RulesConfig reduction rules loaded from the embedded YAML
type RulesConfig struct {
	PostalCode        string   `yaml:"postal_code"`
	Parenthetical     string   `yaml:"parenthetical"`
	TrailingSeparator string   `yaml:"trailing_separator"`
	DetailUnits       []string `yaml:"detail_units"`
	DetailNumber      string   `yaml:"detail_number"`
}

// LoadRulesConfig parses the embedded rule file
func LoadRulesConfig() (*RulesConfig, error) {
	config := &RulesConfig{}
	if err := yaml.Unmarshal(rulesYAML, config); err != nil {
		return nil, fmt.Errorf("parse normalizer rules: %w", err)
	}
	if config.PostalCode == "" || config.Parenthetical == "" || len(config.DetailUnits) == 0 {
		return nil, fmt.Errorf("normalizer rules incomplete")
	}
	if config.DetailNumber == "" {
		config.DetailNumber = `\d+`
	}
	if config.TrailingSeparator == "" {
		config.TrailingSeparator = `[\s,]+$`
	}
	return config, nil
}

// compiledRules precompiled patterns
type compiledRules struct {
	postalCode    *regexp.Regexp
	parenthetical *regexp.Regexp
	detailSegment *regexp.Regexp
	trailingSep   *regexp.Regexp
}

func (rc *RulesConfig) compile() (*compiledRules, error) {
	postal, err := regexp.Compile(rc.PostalCode)
	if err != nil {
		return nil, fmt.Errorf("postal_code: %w", err)
	}
	paren, err := regexp.Compile(rc.Parenthetical)
	if err != nil {
		return nil, fmt.Errorf("parenthetical: %w", err)
	}

	trailing, err := regexp.Compile(rc.TrailingSeparator)
	if err != nil {
		return nil, fmt.Errorf("trailing_separator: %w", err)
	}

	units := make([]string, 0, len(rc.DetailUnits))
	for _, u := range rc.DetailUnits {
		units = append(units, regexp.QuoteMeta(u))
	}
	// the whitespace or comma before the segment goes with it
	detail, err := regexp.Compile(`[\s,]+` + rc.DetailNumber + `(?:` + strings.Join(units, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("detail_units: %w", err)
	}

	return &compiledRules{
		postalCode:    postal,
		parenthetical: paren,
		detailSegment: detail,
		trailingSep:   trailing,
	}, nil
}
