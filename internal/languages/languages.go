// Package languages maps file names to the language tags used for presence
// icons and hover text.
//
// Classification is table driven: an exact file-name match wins, then the
// lower-cased extension. Anything else is [Unknown]. The package holds no
// state and never fails.
package languages

import (
	"path/filepath"
	"strings"
)

// ///////////////////////////////////////////////
// Tags
// ///////////////////////////////////////////////

// Tag is a symbolic language identifier. The zero value means "no language".
type Tag string

// Special tags that do not name a programming language.
const (
	Unknown  Tag = "unknown"
	Binary   Tag = "binary"
	Docker   Tag = "docker"
	Git      Tag = "git"
	Terminal Tag = "terminal"
	Text     Tag = "text"
	SBT      Tag = "sbt"
)

// Programming and markup languages.
const (
	C          Tag = "c"
	CPP        Tag = "cpp"
	CSharp     Tag = "csharp"
	CSS        Tag = "css"
	Dart       Tag = "dart"
	Elixir     Tag = "elixir"
	Go         Tag = "go"
	Gradle     Tag = "gradle"
	Groovy     Tag = "groovy"
	HTML       Tag = "html"
	Java       Tag = "java"
	JavaScript Tag = "javascript"
	JSON       Tag = "json"
	Kotlin     Tag = "kotlin"
	Lua        Tag = "lua"
	Makefile   Tag = "makefile"
	Markdown   Tag = "markdown"
	Maven      Tag = "maven"
	PHP        Tag = "php"
	Properties Tag = "properties"
	Python     Tag = "python"
	Ruby       Tag = "ruby"
	Rust       Tag = "rust"
	Scala      Tag = "scala"
	Shell      Tag = "shell"
	SQL        Tag = "sql"
	Swift      Tag = "swift"
	TOML       Tag = "toml"
	TypeScript Tag = "typescript"
	XML        Tag = "xml"
	YAML       Tag = "yaml"
)

// ///////////////////////////////////////////////
// Lookup Tables
// ///////////////////////////////////////////////

// fileNames maps exact base names to tags. Checked before extensions so that
// "pom.xml" is Maven rather than XML.
var fileNames = map[string]Tag{
	"Dockerfile":     Docker,
	"dockerfile":     Docker,
	".dockerignore":  Docker,
	".gitignore":     Git,
	".gitattributes": Git,
	".gitmodules":    Git,
	".gitkeep":       Git,
	"Makefile":       Makefile,
	"makefile":       Makefile,
	"GNUmakefile":    Makefile,
	"pom.xml":        Maven,
	"build.gradle":   Gradle,
	"Jenkinsfile":    Groovy,
}

// extensions maps lower-cased extensions (with the leading dot) to tags.
var extensions = map[string]Tag{
	".c":          C,
	".h":          C,
	".cpp":        CPP,
	".cc":         CPP,
	".cxx":        CPP,
	".hpp":        CPP,
	".cs":         CSharp,
	".css":        CSS,
	".scss":       CSS,
	".less":       CSS,
	".dart":       Dart,
	".ex":         Elixir,
	".exs":        Elixir,
	".go":         Go,
	".gradle":     Gradle,
	".groovy":     Groovy,
	".html":       HTML,
	".htm":        HTML,
	".java":       Java,
	".class":      Binary,
	".jar":        Binary,
	".js":         JavaScript,
	".mjs":        JavaScript,
	".cjs":        JavaScript,
	".jsx":        JavaScript,
	".json":       JSON,
	".kt":         Kotlin,
	".kts":        Kotlin,
	".lua":        Lua,
	".md":         Markdown,
	".markdown":   Markdown,
	".php":        PHP,
	".properties": Properties,
	".py":         Python,
	".pyw":        Python,
	".rb":         Ruby,
	".rs":         Rust,
	".scala":      Scala,
	".sc":         Scala,
	".sbt":        SBT,
	".sh":         Shell,
	".bash":       Shell,
	".zsh":        Shell,
	".sql":        SQL,
	".swift":      Swift,
	".toml":       TOML,
	".ts":         TypeScript,
	".tsx":        TypeScript,
	".txt":        Text,
	".text":       Text,
	".xml":        XML,
	".yaml":       YAML,
	".yml":        YAML,
}

// displayNames holds names that are not a simple capitalisation of the tag.
var displayNames = map[Tag]string{
	CPP:        "C++",
	CSharp:     "C#",
	CSS:        "CSS",
	HTML:       "HTML",
	JavaScript: "JavaScript",
	JSON:       "JSON",
	PHP:        "PHP",
	SBT:        "sbt",
	SQL:        "SQL",
	TOML:       "TOML",
	TypeScript: "TypeScript",
	XML:        "XML",
	YAML:       "YAML",
	Text:       "plain text",
}

// hoverTexts holds the fixed hover phrases for special tags.
var hoverTexts = map[Tag]string{
	Binary:   "Reading a binary file",
	Unknown:  "Editing a file of unknown type",
	Docker:   "Configuring Docker",
	Git:      "Configuring Git",
	Terminal: "Using the terminal",
	Text:     "Editing a plain text file",
	SBT:      "Building with sbt",
}

// ///////////////////////////////////////////////
// Classification
// ///////////////////////////////////////////////

// Classify returns the tag for fileName. Only the base name is considered.
// Names without an extension, or ending in a dot, are [Unknown] unless they
// appear in the exact-name table.
func Classify(fileName string) Tag {
	base := filepath.Base(fileName)
	if tag, ok := fileNames[base]; ok {
		return tag
	}
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 || dot == len(base)-1 {
		return Unknown
	}
	if tag, ok := extensions[strings.ToLower(base[dot:])]; ok {
		return tag
	}
	return Unknown
}

// DisplayName returns the human-readable language name, e.g. "Java" or "C++".
func (t Tag) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// AssetKey returns the Discord art asset key for the tag.
func (t Tag) AssetKey() string {
	return string(t)
}

// HoverText returns the tooltip shown over the language icon.
func HoverText(t Tag) string {
	if text, ok := hoverTexts[t]; ok {
		return text
	}
	return "Programming in " + t.DisplayName()
}
