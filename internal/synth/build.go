package synth

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"tools.zach/dev/idecord/internal/elapsed"
	"tools.zach/dev/idecord/internal/languages"
	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/presence"
)

// Hidden is what a variable renders as when its visibility flag is off.
const Hidden = "?"

// UnknownScope is the project name used when the resource has no scope.
const UnknownScope = "an unknown project"

// maxFieldLen is Discord's limit for the details and state lines.
const maxFieldLen = 128

// varRegex matches ${name} and ${name.part} placeholders.
var varRegex = regexp.MustCompile(`\$\{([A-Za-z]+(?:\.[A-Za-z]+)?)\}`)

// templateVars are the substitution values for one build.
type templateVars struct {
	File      string
	BaseName  string
	Extension string
	Language  string
	Project   string
}

// Build applies the effective preferences and anchors to in. It never fails
// and never hides the whole presence; [prefs.Effective.ShowsPresence] is
// the connection layer's concern.
func Build(in Input, p prefs.Effective, a elapsed.Anchors) presence.Presence {
	tag := in.Language()
	vars := resolveVars(in, p, tag)

	detailsTmpl, stateTmpl := in.DetailsTemplate, in.StateTemplate
	if p.UsesCustomWording {
		if p.CustomDetailsTemplate != "" {
			detailsTmpl = p.CustomDetailsTemplate
		}
		if p.CustomStateTemplate != "" {
			stateTmpl = p.CustomStateTemplate
		}
	}

	opts := []presence.Option{
		presence.Details(applyTemplate(detailsTmpl, vars)),
		presence.State(applyTemplate(stateTmpl, vars)),
		presence.Scope(in.Scope),
	}
	if p.ShowsLanguageIcon {
		opts = append(opts,
			presence.Language(tag),
			presence.HoverText(languages.HoverText(tag)),
		)
	}
	if p.ShowsElapsedTime {
		opts = append(opts, presence.Start(a.Select(p.ResetsElapsedTimeOn)))
	}
	return presence.New(opts...)
}

func resolveVars(in Input, p prefs.Effective, tag languages.Tag) templateVars {
	v := templateVars{
		File:      Hidden,
		BaseName:  Hidden,
		Extension: Hidden,
		Language:  tag.DisplayName(),
		Project:   Hidden,
	}
	if p.ShowsFileName {
		v.File = in.FileName
		ext := filepath.Ext(in.FileName)
		v.BaseName = strings.TrimSuffix(in.FileName, ext)
		v.Extension = strings.TrimPrefix(ext, ".")
	}
	if p.ShowsScopeName {
		v.Project = projectName(in.Scope, p.ScopeDisplayName)
	}
	return v
}

// projectName picks the configured display name, then the scope's own name,
// then [UnknownScope].
func projectName(scope prefs.ScopeRef, displayName string) string {
	switch {
	case strings.TrimSpace(displayName) != "":
		return displayName
	case !scope.IsZero():
		return string(scope)
	default:
		return UnknownScope
	}
}

// applyTemplate substitutes every known placeholder in tmpl. Unknown
// placeholders are left as written. The result is cut to [maxFieldLen] runes.
func applyTemplate(tmpl string, vars templateVars) string {
	s := varRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := varRegex.FindStringSubmatch(match)[1]
		if v, ok := resolveVar(name, vars); ok {
			return v
		}
		return match
	})
	return truncate(strings.TrimSpace(s), maxFieldLen)
}

func resolveVar(name string, vars templateVars) (string, bool) {
	switch name {
	case "file":
		return vars.File, true
	case "file.baseName":
		return vars.BaseName, true
	case "file.extension":
		return vars.Extension, true
	case "language":
		return vars.Language, true
	case "project":
		return vars.Project, true
	default:
		return "", false
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
