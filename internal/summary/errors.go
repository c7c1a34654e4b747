package summary

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("invalid summarizer configuration")
	// ErrLabelEvaluation matches every *LabelEvaluationError via errors.Is.
	ErrLabelEvaluation = errors.New("outlier label cannot be evaluated")
)

// ConfigurationError reports options or attributes that cannot be mined over.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// LabelEvaluationError reports a label column whose values the outlier predicate cannot be
// applied to. Row is -1 when the problem is the column as a whole.
type LabelEvaluationError struct {
	Column string
	Row    int
	Reason string
}

func (e *LabelEvaluationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("label column %q, row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("label column %q: %s", e.Column, e.Reason)
}

func (e *LabelEvaluationError) Is(target error) bool { return target == ErrLabelEvaluation }

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
