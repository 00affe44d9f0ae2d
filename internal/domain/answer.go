package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizeAnswer trims surrounding whitespace and lowercases a submission.
func NormalizeAnswer(submission string) string {
	return strings.ToLower(strings.TrimSpace(submission))
}

// Validate checks that a pattern spec compiles. Catalog loaders call this
// so that malformed patterns fail at load time, not at submission time.
func (s AnswerSpec) Validate() error {
	if !s.IsPattern {
		return nil
	}
	if _, err := compilePattern(s.Value); err != nil {
		return fmt.Errorf("invalid answer pattern %q: %w", s.Value, err)
	}
	return nil
}

// Match judges a submission against the spec. Patterns use search
// semantics: a partial match anywhere in the normalized submission counts.
func (s AnswerSpec) Match(submission string) (bool, error) {
	normalized := NormalizeAnswer(submission)
	if s.IsPattern {
		re, err := compilePattern(s.Value)
		if err != nil {
			return false, fmt.Errorf("invalid answer pattern %q: %w", s.Value, err)
		}
		return re.MatchString(normalized), nil
	}
	return normalized == strings.ToLower(s.Value), nil
}

func compilePattern(value string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + strings.ToLower(value))
}
