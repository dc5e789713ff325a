package merge

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/treemerge/internal/ast"
)

// Side identifies one of the two merge inputs.
type Side string

const (
	SideTemplate    Side = "template"
	SideDestination Side = "destination"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrTemplateParse       = errors.New("merge: template parse error")
	ErrDestinationParse    = errors.New("merge: destination parse error")
	ErrPlaceholderConflict = errors.New("merge: placeholder collision")
	ErrFreezeStructure     = errors.New("merge: invalid freeze structure")
	ErrInvalidConfig       = errors.New("merge: invalid configuration")
	ErrAnchorNotFound      = errors.New("merge: injection anchor not found")
)

// ParseError wraps every issue the parser reported for one input.
type ParseError struct {
	Side   Side
	Format string
	Issues []ast.Issue
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("merge: %s %s parse failed with %d issue(s): %s",
		e.Side, e.Format, len(e.Issues), ast.IssueList(e.Issues))
}

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrTemplateParse:
		return e.Side == SideTemplate
	case ErrDestinationParse:
		return e.Side == SideDestination
	}
	return false
}

// PlaceholderCollisionError is returned when an input already contains the
// text reserved for region placeholders.
type PlaceholderCollisionError struct {
	Side        Side
	Placeholder string
}

func (e *PlaceholderCollisionError) Error() string {
	return fmt.Sprintf("merge: %s already contains region placeholder %q", e.Side, e.Placeholder)
}

func (e *PlaceholderCollisionError) Is(target error) bool { return target == ErrPlaceholderConflict }

// FreezeError reports malformed freeze markers in one input. Err is a
// *freeze.StructureError.
type FreezeError struct {
	Side Side
	Err  error
}

func (e *FreezeError) Error() string {
	return fmt.Sprintf("merge: %s: %v", e.Side, e.Err)
}

func (e *FreezeError) Unwrap() error { return e.Err }

func (e *FreezeError) Is(target error) bool { return target == ErrFreezeStructure }

// ConfigError reports malformed options.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("merge: invalid option %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }
