package modeler

import (
	"context"
	"errors"
	"testing"
)

func TestModelerErrorHandlingString(t *testing.T) {
	cases := map[ModelerErrorHandling]string{
		FailOnError:              "FailOnError",
		FallbackOnError:          "FallbackOnError",
		SkipOnError:              "SkipOnError",
		ModelerErrorHandling(99): "ModelerErrorHandling(99)",
	}
	for handling, want := range cases {
		if got := handling.String(); got != want {
			t.Errorf("handling %d: got %q, want %q", handling, got, want)
		}
	}
}

func TestModelerError(t *testing.T) {
	base := errors.New("boom")

	t.Run("plain error message", func(t *testing.T) {
		err := NewModelerError("ResolveEntities", base)
		if err.Error() != "modeler ResolveEntities failed: boom" {
			t.Errorf("unexpected message: %q", err.Error())
		}
		if !errors.Is(err, err) || errors.Unwrap(err) != base {
			t.Errorf("expected Unwrap to return base error")
		}
	})

	t.Run("fallback message", func(t *testing.T) {
		err := NewModelerError("ResolveEntities", base).WithFallback()
		if err.Error() != "modeler ResolveEntities failed (using fallback): boom" {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})

	t.Run("skipped message", func(t *testing.T) {
		err := NewModelerError("ResolveEntities", base).WithSkipped()
		if err.Error() != "modeler ResolveEntities failed (skipped): boom" {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})
}

func TestManagedModeler(t *testing.T) {
	ctx := context.Background()
	custom := &MockGraphModeler{}
	fallback := &MockGraphModeler{}

	t.Run("success passes through custom output untouched", func(t *testing.T) {
		m := NewManagedModeler(custom, fallback, FailOnError, nil)
		input := &EntityResolutionInput{}
		out, err := m.ResolveEntities(ctx, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out == nil {
			t.Fatal("expected non-nil output")
		}
	})

	t.Run("FailOnError propagates the custom error", func(t *testing.T) {
		custom.resolveEntitiesFn = func(ctx context.Context, input *EntityResolutionInput) (*EntityResolutionOutput, error) {
			return nil, errors.New("custom failed")
		}
		defer func() { custom.resolveEntitiesFn = nil }()

		m := NewManagedModeler(custom, fallback, FailOnError, nil)
		_, err := m.ResolveEntities(ctx, &EntityResolutionInput{})
		var modelerErr *ModelerError
		if !errors.As(err, &modelerErr) {
			t.Fatalf("expected ModelerError, got %T", err)
		}
		if modelerErr.Fallback || modelerErr.Skipped {
			t.Error("FailOnError should not mark fallback or skipped")
		}
	})

	t.Run("SkipOnError returns zero output and a skipped error", func(t *testing.T) {
		custom.resolveEntitiesFn = func(ctx context.Context, input *EntityResolutionInput) (*EntityResolutionOutput, error) {
			return nil, errors.New("custom failed")
		}
		defer func() { custom.resolveEntitiesFn = nil }()

		m := NewManagedModeler(custom, fallback, SkipOnError, nil)
		out, err := m.ResolveEntities(ctx, &EntityResolutionInput{})
		if out != nil {
			t.Errorf("expected nil output on skip, got %+v", out)
		}
		var modelerErr *ModelerError
		if !errors.As(err, &modelerErr) || !modelerErr.Skipped {
			t.Fatalf("expected skipped ModelerError, got %v", err)
		}
	})

	t.Run("FallbackOnError runs the fallback and returns its output", func(t *testing.T) {
		custom.resolveEntitiesFn = func(ctx context.Context, input *EntityResolutionInput) (*EntityResolutionOutput, error) {
			return nil, errors.New("custom failed")
		}
		defer func() { custom.resolveEntitiesFn = nil }()

		fallback.resolveEntitiesFn = func(ctx context.Context, input *EntityResolutionInput) (*EntityResolutionOutput, error) {
			return &EntityResolutionOutput{NewCount: 7}, nil
		}
		defer func() { fallback.resolveEntitiesFn = nil }()

		m := NewManagedModeler(custom, fallback, FallbackOnError, nil)
		out, err := m.ResolveEntities(ctx, &EntityResolutionInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out == nil || out.NewCount != 7 {
			t.Fatalf("expected fallback output with NewCount 7, got %+v", out)
		}
	})

	t.Run("FallbackOnError surfaces a combined error if the fallback also fails", func(t *testing.T) {
		custom.resolveRelationshipsFn = func(ctx context.Context, input *RelationshipResolutionInput) (*RelationshipResolutionOutput, error) {
			return nil, errors.New("custom failed")
		}
		defer func() { custom.resolveRelationshipsFn = nil }()
		fallback.resolveRelationshipsFn = func(ctx context.Context, input *RelationshipResolutionInput) (*RelationshipResolutionOutput, error) {
			return nil, errors.New("fallback also failed")
		}
		defer func() { fallback.resolveRelationshipsFn = nil }()

		m := NewManagedModeler(custom, fallback, FallbackOnError, nil)
		_, err := m.ResolveRelationships(ctx, &RelationshipResolutionInput{})
		if err == nil {
			t.Fatal("expected an error when both custom and fallback fail")
		}
	})

	t.Run("implements GraphModeler", func(t *testing.T) {
		var _ GraphModeler = NewManagedModeler(custom, fallback, FallbackOnError, nil)
	})
}
