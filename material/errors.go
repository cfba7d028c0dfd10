package material

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateProfileID  = errors.New("duplicate profile id")
	ErrInvalidReference    = errors.New("invalid profile reference")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrUnknownProfile      = errors.New("unknown profile")
	ErrUnresolvedProfile   = errors.New("unresolved profile")
	ErrCyclicFallbackChain = errors.New("cyclic fallback chain")
)

// ResolveError reports why a reference did not resolve. Kind is one of
// ErrUnknownProfile, ErrUnresolvedProfile or ErrCyclicFallbackChain.
type ResolveError struct {
	Kind error
	Ref  Ref
	// Path is the reference path for a cycle, ending with the revisited entry.
	Path []Ref
	// Missing lists chain entries that were not in the manifest.
	Missing []Ref
}

func (e *ResolveError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrCyclicFallbackChain):
		return fmt.Sprintf("%v: %s", e.Kind, joinPath(e.Path))
	case len(e.Missing) > 0:
		return fmt.Sprintf("%v %q (missing fallbacks: %s)", e.Kind, e.Ref, joinRefs(e.Missing))
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Ref)
}

func (e *ResolveError) Unwrap() error {
	return e.Kind
}

func joinPath(path []Ref) string {
	parts := make([]string, len(path))
	for i, r := range path {
		parts[i] = string(r)
	}
	return strings.Join(parts, " -> ")
}

func joinRefs(refs []Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
