// Package prefs resolves the user's presence preferences.
//
// Preferences live in two layers: a global store and one optional store per
// scope (usually a project). [Global.Resolve] flattens the layers into an
// [Effective] snapshot for a scope:
//
//   - a scope that opts in with use_project_settings gets its own values;
//   - any other scope inherits every global value except the display name,
//     which the scope may still override.
//
// Every store change is normalized into one [Event] from a closed vocabulary
// and delivered to the listeners of the source that owns the store.
package prefs

import "strings"

// ///////////////////////////////////////////////
// Scopes
// ///////////////////////////////////////////////

// ScopeRef identifies a scope. The empty value means "no scope". The string is
// also the scope's natural display name.
type ScopeRef string

// IsZero reports whether the reference is absent.
func (s ScopeRef) IsZero() bool { return s == "" }

// Valid reports whether s can name a per-scope preference file.
func (s ScopeRef) Valid() bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(string(s), `/\`+"\x00")
}

// ///////////////////////////////////////////////
// Keys
// ///////////////////////////////////////////////

// Storage keys shared by the global and scope stores.
const (
	KeyShowFileName     = "show_file_name"
	KeyShowProjectName  = "show_project_name"
	KeyShowElapsedTime  = "show_elapsed_time"
	KeyShowLanguageIcon = "show_language_icon"
	KeyShowPresence     = "show_presence"
	KeyResetElapsedTime = "reset_elapsed_time"
	KeyUseCustomApp     = "use_custom_app"
	KeyCustomAppID      = "custom_app_id"
	KeyUseCustomWording = "use_custom_wording"
	KeyDetailsWording   = "details_wording"
	KeyStateWording     = "state_wording"
)

// Keys only meaningful in a scope store.
const (
	KeyUseProjectSettings = "use_project_settings"
	KeyProjectName        = "project_name"
)

// ///////////////////////////////////////////////
// Reset Moment
// ///////////////////////////////////////////////

// ResetMoment selects which anchor the elapsed-time display counts from.
type ResetMoment int

const (
	// ResetOnStartup counts from daemon start.
	ResetOnStartup ResetMoment = iota
	// ResetOnNewScope restarts the count when the user enters another scope.
	ResetOnNewScope
	// ResetOnNewResource restarts the count on every activated resource.
	ResetOnNewResource
)

// Stored values for [KeyResetElapsedTime].
const (
	ResetValueStartup     = "startup"
	ResetValueNewProject  = "new_project"
	ResetValueNewResource = "new_file"
)

// ParseResetMoment maps a stored value to a moment. Unrecognized values read
// as [ResetOnStartup].
func ParseResetMoment(s string) ResetMoment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ResetValueNewProject:
		return ResetOnNewScope
	case ResetValueNewResource:
		return ResetOnNewResource
	default:
		return ResetOnStartup
	}
}

// String returns the stored form of the moment.
func (m ResetMoment) String() string {
	switch m {
	case ResetOnNewScope:
		return ResetValueNewProject
	case ResetOnNewResource:
		return ResetValueNewResource
	default:
		return ResetValueStartup
	}
}

// ///////////////////////////////////////////////
// Effective Preferences
// ///////////////////////////////////////////////

// Effective is the flattened preference view governing one scope. It is a
// snapshot: resolve again after any change instead of holding on to it.
type Effective struct {
	ShowsFileName     bool
	ShowsScopeName    bool
	ShowsElapsedTime  bool
	ShowsLanguageIcon bool
	ShowsPresence     bool

	ResetsElapsedTimeOn ResetMoment

	UsesCustomIdentity bool
	// CustomIdentity is empty when no identity has been configured.
	CustomIdentity string

	UsesCustomWording     bool
	CustomDetailsTemplate string
	CustomStateTemplate   string

	// ScopeDisplayName overrides the scope's natural name; empty when unset.
	ScopeDisplayName string
}

// Defaults returns the preferences in effect when nothing is stored.
func Defaults() Effective {
	return readEffective(NewMemoryStore())
}

// readEffective reads every shared key from st, falling back to defaults.
// ScopeDisplayName is left empty; callers decide whether it applies.
func readEffective(st Store) Effective {
	return Effective{
		ShowsFileName:         st.Bool(KeyShowFileName, true),
		ShowsScopeName:        st.Bool(KeyShowProjectName, true),
		ShowsElapsedTime:      st.Bool(KeyShowElapsedTime, true),
		ShowsLanguageIcon:     st.Bool(KeyShowLanguageIcon, true),
		ShowsPresence:         st.Bool(KeyShowPresence, true),
		ResetsElapsedTimeOn:   ParseResetMoment(st.String(KeyResetElapsedTime, ResetValueNewProject)),
		UsesCustomIdentity:    st.Bool(KeyUseCustomApp, false),
		CustomIdentity:        strings.TrimSpace(st.String(KeyCustomAppID, "")),
		UsesCustomWording:     st.Bool(KeyUseCustomWording, false),
		CustomDetailsTemplate: st.String(KeyDetailsWording, ""),
		CustomStateTemplate:   st.String(KeyStateWording, ""),
	}
}
