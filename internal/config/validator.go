package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	treeqerrors "github.com/standardbeagle/treeq/internal/errors"
	"github.com/standardbeagle/treeq/internal/types"
)

// Validator checks struct tag constraints and fills derived defaults
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateAndSetDefaults normalizes cfg, then validates every section.
// Each failure is a *errors.ConfigError naming the offending field; several
// failures come back together as an *errors.MultiError.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setSmartDefaults(cfg)

	sections := []struct {
		name  string
		value any
	}{
		{"collection", &cfg.Collection},
		{"search", &cfg.Search},
		{"sources", &cfg.Sources},
	}
	var errs []error
	for _, s := range sections {
		if err := v.validate.Struct(s.value); err != nil {
			errs = append(errs, sectionError(s.name, err))
		}
	}

	if cfg.Search.ThrottleMs > 0 && cfg.Search.ThrottleMs < cfg.Search.DebounceMs {
		errs = append(errs, treeqerrors.NewConfigError("search.throttle_ms", fmt.Sprint(cfg.Search.ThrottleMs),
			fmt.Errorf("throttle ceiling must not be shorter than the debounce delay (%dms)", cfg.Search.DebounceMs)))
	}
	if cfg.Sources.Folders != "" && cfg.Sources.Items == "" {
		errs = append(errs, treeqerrors.NewConfigError("sources.items", "", errors.New("a folder file needs an item file")))
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return treeqerrors.NewMultiError(errs).ErrorOrNil()
}

// sectionError converts the first validator failure into a ConfigError
func sectionError(section string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return treeqerrors.NewConfigError(section, "", err)
	}
	fe := fieldErrs[0]
	field := section + "." + toSnake(fe.StructField())
	msg := fmt.Errorf("failed %q constraint", fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Errorf("failed %q constraint (%s)", fe.Tag(), fe.Param())
	}
	return treeqerrors.NewConfigError(field, fmt.Sprint(fe.Value()), msg)
}

// toSnake maps a struct field such as "PageSize" or "Flags[0]" to its KDL
// node name
func toSnake(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}

// setSmartDefaults fills fields whose zero value is not meaningful
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Collection.PageSize == 0 {
		cfg.Collection.PageSize = types.DefaultPageSize
	}
	if cfg.Collection.DefaultSortOrder == "" {
		cfg.Collection.DefaultSortOrder = string(types.SortAsc)
	}
	if cfg.Collection.Selection == "" {
		cfg.Collection.Selection = "range"
	}
	if cfg.Search.Matcher == "" {
		cfg.Search.Matcher = "subsequence"
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
