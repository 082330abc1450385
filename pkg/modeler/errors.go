package modeler

import (
	"context"
	"fmt"
	"log/slog"
)

// ModelerErrorHandling controls behavior when a custom GraphModeler returns an error.
type ModelerErrorHandling int

const (
	// FailOnError stops processing and returns the error immediately.
	// Use this when you want strict validation of custom modeler behavior.
	FailOnError ModelerErrorHandling = iota

	// FallbackOnError logs a warning and re-runs the failed step on the fallback
	// modeler. ManagedModeler also applies it to unrecognised values; the zero
	// value of ModelerErrorHandling is FailOnError.
	FallbackOnError

	// SkipOnError logs a warning and skips the failed step entirely.
	// Use with caution - may result in incomplete graph modeling.
	SkipOnError
)

// String returns the string representation of the error handling mode.
func (m ModelerErrorHandling) String() string {
	switch m {
	case FailOnError:
		return "FailOnError"
	case FallbackOnError:
		return "FallbackOnError"
	case SkipOnError:
		return "SkipOnError"
	default:
		return fmt.Sprintf("ModelerErrorHandling(%d)", m)
	}
}

// ModelerError wraps an error with additional context about which modeler step failed.
type ModelerError struct {
	// Step is which modeler method failed (e.g., "ResolveEntities")
	Step string

	// Err is the underlying error
	Err error

	// Fallback indicates whether fallback to DefaultModeler was used
	Fallback bool

	// Skipped indicates whether the step was skipped
	Skipped bool
}

// Error implements the error interface.
func (e *ModelerError) Error() string {
	if e.Fallback {
		return fmt.Sprintf("modeler %s failed (using fallback): %v", e.Step, e.Err)
	}
	if e.Skipped {
		return fmt.Sprintf("modeler %s failed (skipped): %v", e.Step, e.Err)
	}
	return fmt.Sprintf("modeler %s failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelerError) Unwrap() error {
	return e.Err
}

// NewModelerError creates a new ModelerError.
func NewModelerError(step string, err error) *ModelerError {
	return &ModelerError{
		Step: step,
		Err:  err,
	}
}

// WithFallback marks this error as having used fallback.
func (e *ModelerError) WithFallback() *ModelerError {
	e.Fallback = true
	return e
}

// WithSkipped marks this error as having been skipped.
func (e *ModelerError) WithSkipped() *ModelerError {
	e.Skipped = true
	return e
}

// ManagedModeler wraps a custom GraphModeler with an error-handling policy,
// falling back to a DefaultModeler (or skipping the step) when the custom
// implementation fails, instead of aborting the whole pipeline run.
type ManagedModeler struct {
	custom   GraphModeler
	fallback GraphModeler
	handling ModelerErrorHandling
	logger   *slog.Logger
}

var _ GraphModeler = (*ManagedModeler)(nil)

// NewManagedModeler wraps custom with fallback according to handling. logger
// defaults to slog.Default() if nil.
func NewManagedModeler(custom, fallback GraphModeler, handling ModelerErrorHandling, logger *slog.Logger) *ManagedModeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagedModeler{custom: custom, fallback: fallback, handling: handling, logger: logger}
}

func (m *ManagedModeler) ResolveEntities(ctx context.Context, input *EntityResolutionInput) (*EntityResolutionOutput, error) {
	return managedStep(m, "ResolveEntities", func() (*EntityResolutionOutput, error) {
		return m.custom.ResolveEntities(ctx, input)
	}, func() (*EntityResolutionOutput, error) {
		return m.fallback.ResolveEntities(ctx, input)
	})
}

func (m *ManagedModeler) ResolveRelationships(ctx context.Context, input *RelationshipResolutionInput) (*RelationshipResolutionOutput, error) {
	return managedStep(m, "ResolveRelationships", func() (*RelationshipResolutionOutput, error) {
		return m.custom.ResolveRelationships(ctx, input)
	}, func() (*RelationshipResolutionOutput, error) {
		return m.fallback.ResolveRelationships(ctx, input)
	})
}

func (m *ManagedModeler) BuildCommunities(ctx context.Context, input *CommunityInput) (*CommunityOutput, error) {
	return managedStep(m, "BuildCommunities", func() (*CommunityOutput, error) {
		return m.custom.BuildCommunities(ctx, input)
	}, func() (*CommunityOutput, error) {
		return m.fallback.BuildCommunities(ctx, input)
	})
}

// managedStep centralizes the FailOnError/FallbackOnError/SkipOnError
// decision across all three GraphModeler steps, whose outputs differ in
// type. On success it returns the custom step's output untouched; on
// failure it applies m.handling, re-running runFallback for
// FallbackOnError and returning its output instead.
func managedStep[T any](m *ManagedModeler, step string, runCustom, runFallback func() (T, error)) (T, error) {
	out, err := runCustom()
	if err == nil {
		return out, nil
	}

	switch m.handling {
	case SkipOnError:
		m.logger.Warn("modeler step failed, skipping", "step", step, "error", err)
		var zero T
		return zero, NewModelerError(step, err).WithSkipped()
	case FailOnError:
		return out, NewModelerError(step, err)
	default: // FallbackOnError
		m.logger.Warn("modeler step failed, falling back to default modeler", "step", step, "error", err)
		fallbackOut, fallbackErr := runFallback()
		if fallbackErr != nil {
			return fallbackOut, NewModelerError(step, fmt.Errorf("custom: %w; fallback: %v", err, fallbackErr))
		}
		return fallbackOut, nil
	}
}
