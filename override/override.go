// Package override validates and applies @override exceptions: time-boxed,
// justified, per-file suppressions of one constraint. An override never
// changes what resolution produces; it only decides whether an already
// detected violation is reported or suppressed, and an invalid override
// never suppresses anything.
package override

import (
	"fmt"
	"time"

	"github.com/c360studio/archlint/rules"
)

// DateLayout is the accepted @expires format (ISO-8601 date).
const DateLayout = "2006-01-02"

// Override is one parsed @override block from a source file. Ephemeral:
// parsed per file at validation time, never stored.
type Override struct {
	// Rule is the constraint kind the override targets.
	Rule rules.Kind

	// Value narrows the override to one payload item (for example a single
	// forbidden import). Empty matches any violation of the rule.
	Value string

	// Reason is the mandatory justification.
	Reason string

	// Expires is the optional expiry date in DateLayout form.
	Expires string

	// Ticket and ApprovedBy are optional audit fields.
	Ticket     string
	ApprovedBy string

	// Line is the 1-based source line of the @override tag.
	Line int
}

// Field returns the named audit field, used by required-field validation.
func (o Override) Field(name string) string {
	switch name {
	case "reason":
		return o.Reason
	case "expires":
		return o.Expires
	case "ticket":
		return o.Ticket
	case "approved_by":
		return o.ApprovedBy
	case "value":
		return o.Value
	}
	return ""
}

// Policy configures override validation.
type Policy struct {
	// RequiredFields lists audit fields that must be non-empty. Typically
	// just "reason".
	RequiredFields []string `yaml:"required_fields"`

	// WarnNoExpiry emits a warning for overrides with no expiry date.
	WarnNoExpiry bool `yaml:"warn_no_expiry"`

	// MaxExpiryDays bounds how far in the future an expiry may lie.
	// Zero disables the horizon check.
	MaxExpiryDays int `yaml:"max_expiry_days"`

	// FailOnExpired makes an already-expired override invalid.
	FailOnExpired bool `yaml:"fail_on_expired"`
}

// DefaultPolicy returns the policy used when configuration is absent.
func DefaultPolicy() Policy {
	return Policy{
		RequiredFields: []string{"reason"},
		WarnNoExpiry:   true,
		MaxExpiryDays:  90,
		FailOnExpired:  true,
	}
}

// Validation is the outcome of checking one override against a policy.
type Validation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks an override against the policy as of now. Checks run in a
// fixed order so messages are stable: required fields, expired, missing
// expiry, horizon.
func Validate(o Override, p Policy, now time.Time) Validation {
	v := Validation{Valid: true}

	for _, field := range p.RequiredFields {
		if o.Field(field) == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("Override requires @%s field", field))
			v.Valid = false
		}
	}

	if o.Expires != "" {
		expires, err := time.Parse(DateLayout, o.Expires)
		if err != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("invalid @expires date %q", o.Expires))
			v.Valid = false
			return v
		}
		today := now.Truncate(24 * time.Hour)
		if expires.Before(today) && p.FailOnExpired {
			v.Errors = append(v.Errors, fmt.Sprintf("%s override expired on %s", o.Rule, o.Expires))
			v.Valid = false
		}
		if p.MaxExpiryDays > 0 {
			horizon := today.AddDate(0, 0, p.MaxExpiryDays)
			if expires.After(horizon) {
				v.Errors = append(v.Errors, fmt.Sprintf("expiry exceeds maximum of %d days", p.MaxExpiryDays))
				v.Valid = false
			}
		}
	} else if p.WarnNoExpiry {
		v.Warnings = append(v.Warnings, "Override has no expiration date")
	}

	return v
}

// Application is the outcome of routing one violation through the file's
// overrides.
type Application struct {
	// Suppressed is true when a valid matching override was found.
	Suppressed bool

	// Override is the matching override, valid or not. Nil when no override
	// targets the violation at all.
	Override *Override

	// Problems carries the validation errors and warnings of a matching but
	// invalid override. They are reported alongside the surviving violation.
	Problems []string

	// Warnings carries non-fatal notes for a suppressing override (for
	// example a missing expiry under WarnNoExpiry).
	Warnings []string
}

// Apply decides whether a violation of rule (with the given offending value)
// is suppressed by any of the file's overrides. An override matches on rule,
// and on value when the override specifies one. The first valid matching
// override suppresses; if only invalid matches exist, the violation survives
// and the first match's problems are attached.
func Apply(rule rules.Kind, value string, overrides []Override, p Policy, now time.Time) Application {
	var firstMatch *Override
	var firstProblems []string

	for i := range overrides {
		o := &overrides[i]
		if o.Rule != rule {
			continue
		}
		if o.Value != "" && value != "" && o.Value != value {
			continue
		}
		v := Validate(*o, p, now)
		if v.Valid {
			return Application{Suppressed: true, Override: o, Warnings: v.Warnings}
		}
		if firstMatch == nil {
			firstMatch = o
			firstProblems = v.Errors
		}
	}

	return Application{Override: firstMatch, Problems: firstProblems}
}
