package prompts

import (
	"fmt"
	"strings"
)

type Validator func(Input) error

func RequireNonEmpty(field string, get func(Input) string) Validator {
	return func(in Input) error {
		if get == nil {
			return fmt.Errorf("validator for %s: getter is nil", field)
		}
		if strings.TrimSpace(get(in)) == "" {
			return fmt.Errorf("%s required", field)
		}
		return nil
	}
}

func RequirePositive(field string, get func(Input) int) Validator {
	return func(in Input) error {
		if get == nil {
			return fmt.Errorf("validator for %s: getter is nil", field)
		}
		if get(in) <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
		return nil
	}
}

// RequireLearner checks the three learner metadata fields every lesson prompt substitutes.
func RequireLearner() Validator {
	return func(in Input) error {
		for _, f := range []struct {
			name string
			val  string
		}{
			{"NativeLanguage", in.NativeLanguage},
			{"TargetLanguage", in.TargetLanguage},
			{"Proficiency", in.Proficiency},
		} {
			if strings.TrimSpace(f.val) == "" {
				return fmt.Errorf("%s required", f.name)
			}
		}
		return nil
	}
}

func RequireSegmentRange() Validator {
	return func(in Input) error {
		if in.MinSegments <= 0 || in.MaxSegments < in.MinSegments {
			return fmt.Errorf("invalid segment range %d-%d", in.MinSegments, in.MaxSegments)
		}
		return nil
	}
}
