package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CriteriaFile overrides the built-in filter term lists. A list left out of
// the file keeps its default; an empty list clears it.
type CriteriaFile struct {
	Seniority          []string `yaml:"seniority"`
	ResumeIndicators   []string `yaml:"resume_indicators"`
	ResumeContextual   []string `yaml:"resume_contextual"`
	Pronouns           []string `yaml:"pronouns"`
	JobSeekingPatterns []string `yaml:"job_seeking_patterns"`
	NonDeveloperRoles  []string `yaml:"non_developer_roles"`
	ContextualKeywords []string `yaml:"contextual_keywords"`
	DeveloperTerms     []string `yaml:"developer_terms"`
	JuniorIndicators   []string `yaml:"junior_indicators"`
	RemoteIndicators   []string `yaml:"remote_indicators"`
	ExperiencePatterns []string `yaml:"experience_patterns"`
	MaxExperienceYears *int     `yaml:"max_experience_years"`
	RoleGuard          *bool    `yaml:"role_guard"`
}

// LoadCriteria reads a criteria YAML file and validates it.
func LoadCriteria(path string) (*CriteriaFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("criteria path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read criteria: %w", err)
	}

	var cf CriteriaFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}

	if err := validateCriteria(&cf); err != nil {
		return nil, fmt.Errorf("validate criteria: %w", err)
	}

	return &cf, nil
}

func validateCriteria(cf *CriteriaFile) error {
	if cf.MaxExperienceYears != nil && *cf.MaxExperienceYears < 0 {
		return fmt.Errorf("max_experience_years: must not be negative, got %d", *cf.MaxExperienceYears)
	}
	for _, p := range cf.JobSeekingPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("job_seeking_patterns: %w", err)
		}
	}
	for _, p := range cf.ExperiencePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("experience_patterns: %w", err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("experience_patterns: %q needs a capture group for years", p)
		}
	}
	return nil
}
