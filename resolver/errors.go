package resolver

import (
	"fmt"
	"strings"

	"github.com/c360studio/archlint/registry"
)

// UnknownArchitectureError reports an architecture id absent from the
// registry.
type UnknownArchitectureError struct {
	ID string
}

func (e *UnknownArchitectureError) Error() string {
	return fmt.Sprintf("unknown architecture: %s", e.ID)
}

// UnknownMixinError reports a mixin id that an architecture or inline tag
// references but the registry does not define.
type UnknownMixinError struct {
	ID string

	// Via is the architecture declaring the mixin, or "inline" for +name tags.
	Via string
}

func (e *UnknownMixinError) Error() string {
	return fmt.Sprintf("unknown mixin %s (via %s)", e.ID, e.Via)
}

// CycleError reports an inheritance cycle, naming the full chain.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("inheritance cycle: %s", strings.Join(e.Chain, " -> "))
}

// InlineModeViolationError reports a mixin applied through a channel its
// inline mode forbids.
type InlineModeViolationError struct {
	Mixin string
	Mode  registry.InlineMode

	// Via is the architecture whose mixins list applied it, or "inline".
	Via string
}

func (e *InlineModeViolationError) Error() string {
	if e.Mode == registry.InlineOnly {
		return fmt.Sprintf("mixin %s is inline-only and cannot be applied via the mixins list of %s", e.Mixin, e.Via)
	}
	return fmt.Sprintf("mixin %s forbids inline application", e.Mixin)
}

// ConfigError reports that an architecture definition was unusable at load
// time. It is fatal to resolving that one architecture only.
type ConfigError struct {
	ID     string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("architecture %s has a configuration error: %s", e.ID, e.Reason)
}
