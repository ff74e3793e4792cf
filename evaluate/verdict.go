package evaluate

// Status classifies the outcome of evaluating one constraint against one
// file.
type Status int

const (
	// StatusPass means the constraint is satisfied.
	StatusPass Status = iota

	// StatusViolation means the constraint is broken.
	StatusViolation

	// StatusSkipped means the constraint could not be evaluated (gating
	// failure in the constraint itself, bad regex, malformed payload) and
	// was isolated to a warning.
	StatusSkipped
)

// Verdict is the result of one constraint evaluation.
type Verdict struct {
	Status Status

	// Message describes a violation for reporters.
	Message string

	// Reason explains a skip.
	Reason string

	// Value identifies the offending payload item so overrides can target
	// it (for example the forbidden specifier that matched).
	Value string

	// ByIntent is true when a declared @intent satisfied the constraint.
	ByIntent bool
}

func pass() Verdict {
	return Verdict{Status: StatusPass}
}

func passByIntent() Verdict {
	return Verdict{Status: StatusPass, ByIntent: true}
}

func violation(message, value string) Verdict {
	return Verdict{Status: StatusViolation, Message: message, Value: value}
}

func skipped(reason string) Verdict {
	return Verdict{Status: StatusSkipped, Reason: reason}
}
