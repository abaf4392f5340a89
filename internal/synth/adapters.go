package synth

import (
	"errors"

	"tools.zach/dev/idecord/internal/languages"
)

// Built-in wording.
const (
	editingDetails  = "Editing ${file}"
	readingDetails  = "Reading ${file}"
	terminalDetails = "Using the terminal"
	workingState    = "Working on ${project}"
)

var errNoFileName = errors.New("resource has no file name")

// Ranks of the default adapters. Specific file types sit closer than the
// generic file editor.
var (
	rankFileEditor = Rank{Distance: 2}
	rankClassFile  = Rank{Distance: 1}
	rankTerminal   = Rank{Distance: 1}
)

// DefaultRegistry returns a registry holding the built-in adapters: a text
// editor for any file, a reader for compiled class files and a terminal.
func DefaultRegistry() *Registry {
	reg := &Registry{}
	reg.Register(MatchKind(KindFile), rankFileEditor, AdapterFunc(adaptFileEditor))
	reg.Register(MatchAll(MatchKind(KindFile), MustMatchGlob("**/*.class")), rankClassFile, AdapterFunc(adaptClassFile))
	reg.Register(MatchKind(KindTerminal), rankTerminal, AdapterFunc(adaptTerminal))
	return reg
}

func adaptFileEditor(r Resource) (Input, error) {
	name := FileName(r)
	if name == "" {
		return Input{}, errNoFileName
	}
	return Input{
		Kind:               KindFile,
		FileName:           name,
		Scope:              r.OwningScope(),
		DetailsTemplate:    editingDetails,
		StateTemplate:      workingState,
		ClassifiesLanguage: true,
	}, nil
}

func adaptClassFile(r Resource) (Input, error) {
	name := FileName(r)
	if name == "" {
		return Input{}, errNoFileName
	}
	return Input{
		Kind:            KindFile,
		FileName:        name,
		Scope:           r.OwningScope(),
		DetailsTemplate: readingDetails,
		StateTemplate:   workingState,
		Tag:             languages.Binary,
	}, nil
}

func adaptTerminal(r Resource) (Input, error) {
	return Input{
		Kind:            KindTerminal,
		FileName:        FileName(r),
		Scope:           r.OwningScope(),
		DetailsTemplate: terminalDetails,
		StateTemplate:   workingState,
		Tag:             languages.Terminal,
	}, nil
}
