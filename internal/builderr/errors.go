// Package builderr defines the typed errors and warnings produced while
// building a bundle. Fatal errors abort the build; warnings are collected
// into the build report and surfaced together once the build finishes.
package builderr

import (
	"fmt"
	"strings"
)

// Warning is a non-fatal finding. Every warning is also an error so that
// strict mode can return them unchanged.
type Warning interface {
	error
	warning()
}

// MissingEntryPointError is returned when the entry script does not exist.
type MissingEntryPointError struct {
	Path   string
	Reason string
}

func (e *MissingEntryPointError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entry point %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("entry point %q does not exist", e.Path)
}

// DependencyResolutionError is returned when a module required by the entry
// module's import closure cannot be resolved.
type DependencyResolutionError struct {
	Module     string
	RequiredBy string
	Reason     string
}

func (e *DependencyResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot resolve module %q", e.Module)
	if e.RequiredBy != "" {
		fmt.Fprintf(&sb, " (required by %q)", e.RequiredBy)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

// ResourceNotFoundError is returned when a referenced resource such as the
// icon or splash image is missing.
type ResourceNotFoundError struct {
	Kind string
	Path string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s resource %q not found", e.Kind, e.Path)
}

// InvalidPatternError is returned for a malformed glob or a destination
// that escapes the bundle root.
type InvalidPatternError struct {
	Label       string
	Pattern     string
	Destination string
	Reason      string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("data %q (%s -> %s): %s", e.Label, e.Pattern, e.Destination, e.Reason)
}

// DestinationConflictError is returned when two different source files would
// be written to the same path in the bundle.
type DestinationConflictError struct {
	Destination string
	Sources     []string
}

func (e *DestinationConflictError) Error() string {
	return fmt.Sprintf("bundle path %q is claimed by multiple sources: %s", e.Destination, strings.Join(e.Sources, ", "))
}

// OutputLockedError is returned when another build holds the output lock.
type OutputLockedError struct {
	Path string
}

func (e *OutputLockedError) Error() string {
	return fmt.Sprintf("output %q is locked by another build", e.Path)
}

// NoMatchWarning reports a data mapping whose pattern matched no files.
type NoMatchWarning struct {
	Label       string
	Pattern     string
	Destination string
}

func (w *NoMatchWarning) Error() string {
	return fmt.Sprintf("data %q: pattern %q matched no files (destination %q)", w.Label, w.Pattern, w.Destination)
}

func (*NoMatchWarning) warning() {}

// RedundantMappingWarning reports mappings collapsed into one canonical entry.
type RedundantMappingWarning struct {
	Pattern     string
	Destination string
	Labels      []string
}

func (w *RedundantMappingWarning) Error() string {
	return fmt.Sprintf("mapping %q -> %q is declared %d times (%s)", w.Pattern, w.Destination, len(w.Labels), strings.Join(w.Labels, ", "))
}

func (*RedundantMappingWarning) warning() {}

// UnusedExclusionWarning reports an excluded name that no declared module uses.
type UnusedExclusionWarning struct {
	Module string
}

func (w *UnusedExclusionWarning) Error() string {
	return fmt.Sprintf("excluded module %q is not declared in the manifest", w.Module)
}

func (*UnusedExclusionWarning) warning() {}

// IconFormatWarning reports a resource whose content type is unusual for the
// target operating system.
type IconFormatWarning struct {
	Kind     string
	Path     string
	Detected string
	TargetOS string
}

func (w *IconFormatWarning) Error() string {
	return fmt.Sprintf("%s %q has content type %s, unusual for %s", w.Kind, w.Path, w.Detected, w.TargetOS)
}

func (*IconFormatWarning) warning() {}

// WarningsAsErrors is returned in strict mode when the build produced warnings.
type WarningsAsErrors struct {
	Warnings []Warning
}

func (e *WarningsAsErrors) Error() string {
	lines := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		lines = append(lines, "  - "+w.Error())
	}
	return fmt.Sprintf("%d warning(s) treated as errors:\n%s", len(e.Warnings), strings.Join(lines, "\n"))
}

// Unwrap exposes the individual warnings to errors.As and errors.Is.
func (e *WarningsAsErrors) Unwrap() []error {
	errs := make([]error, len(e.Warnings))
	for i, w := range e.Warnings {
		errs[i] = w
	}
	return errs
}
