// Package synth turns the active resource, the effective preferences and the
// elapsed-time anchors into a [presence.Presence].
//
// Resources are first adapted into an [Input] by the best-ranked [Adapter] in
// a [Registry]; [Build] then applies the preferences to that input. Build is
// a pure function, so the same input always yields the same presence.
package synth

import (
	"path/filepath"

	"tools.zach/dev/idecord/internal/languages"
	"tools.zach/dev/idecord/internal/prefs"
)

// ///////////////////////////////////////////////
// Resources
// ///////////////////////////////////////////////

// Resource is something the user can have open in the host.
type Resource interface {
	// Path identifies the resource. Two resources with the same path are the
	// same resource.
	Path() string
	// DisplayName is the short human name, usually the file's base name.
	DisplayName() string
	// OwningScope is the scope the resource belongs to, or the zero ref.
	OwningScope() prefs.ScopeRef
}

// Kinded is implemented by resources that are not plain files.
type Kinded interface {
	Kind() string
}

// Resource kinds understood by the default adapters.
const (
	KindFile     = "file"
	KindTerminal = "terminal"
)

// KindOf returns r's kind, defaulting to [KindFile].
func KindOf(r Resource) string {
	if k, ok := r.(Kinded); ok && k.Kind() != "" {
		return k.Kind()
	}
	return KindFile
}

// FileName returns the name used for the file template variables: the
// display name when set, else the path's base name.
func FileName(r Resource) string {
	if n := r.DisplayName(); n != "" {
		return n
	}
	if p := r.Path(); p != "" {
		return filepath.Base(p)
	}
	return ""
}

// ///////////////////////////////////////////////
// Adapter Input
// ///////////////////////////////////////////////

// Input is the raw, preference-free description of a resource produced by an
// adapter.
type Input struct {
	Kind     string
	FileName string
	Scope    prefs.ScopeRef

	// DetailsTemplate and StateTemplate are the built-in wording, used when
	// custom wording is off or empty.
	DetailsTemplate string
	StateTemplate   string

	// ClassifiesLanguage is true when the language comes from FileName.
	ClassifiesLanguage bool
	// Tag forces the language tag. It takes precedence over classification.
	Tag languages.Tag
}

// Language returns the tag for the input: the forced tag, else the
// classified file name, else [languages.Unknown].
func (in Input) Language() languages.Tag {
	switch {
	case in.Tag != "":
		return in.Tag
	case in.ClassifiesLanguage:
		return languages.Classify(in.FileName)
	default:
		return languages.Unknown
	}
}

// Adapter converts a resource into an [Input].
type Adapter interface {
	Adapt(r Resource) (Input, error)
}

// AdapterFunc lets an ordinary function serve as an [Adapter].
type AdapterFunc func(r Resource) (Input, error)

// Adapt implements [Adapter].
func (f AdapterFunc) Adapt(r Resource) (Input, error) { return f(r) }
