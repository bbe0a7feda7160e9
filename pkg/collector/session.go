package collector

import (
	"slices"

	"github.com/okvist/quarry/pkg/manager"
)

// Session carries the policies of one or more collection calls. Sessions are
// read-only during collection, so a single session may serve concurrent
// calls as long as its fields are not reassigned mid-flight.
type Session struct {
	// Manager is the dependency manager seeding the traversal. Nil disables
	// management entirely.
	Manager manager.Manager

	// IgnoredScopes lists scopes whose dependencies are skipped below the
	// declared roots. The engine applies no scope policy of its own; an
	// empty list skips nothing.
	IgnoredScopes []string

	// VerboseManagement enables premanaged-state recording on nodes whose
	// dependency was rewritten by management.
	VerboseManagement bool

	// DescriptorErrorsFatal makes Collect return an error (wrapping the
	// partial result) when any descriptor read failed. When false the
	// failures only accumulate on the result.
	DescriptorErrorsFatal bool

	// MissingDescriptorsAsEmpty treats ARTIFACT_DESCRIPTOR_MISSING as an
	// empty descriptor instead of an error.
	MissingDescriptorsAsEmpty bool
}

// NewSession returns a session with the classic dependency manager and
// fatal descriptor errors, mirroring the defaults of the original resolver.
func NewSession() *Session {
	return &Session{
		Manager:               manager.NewClassic(),
		DescriptorErrorsFatal: true,
	}
}

func (s *Session) manager() manager.Manager {
	if s.Manager == nil {
		return manager.NewNoop()
	}
	return s.Manager
}

func (s *Session) ignoresScope(scope string) bool {
	return slices.Contains(s.IgnoredScopes, scope)
}
