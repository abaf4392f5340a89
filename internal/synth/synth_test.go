package synth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tools.zach/dev/idecord/internal/elapsed"
	"tools.zach/dev/idecord/internal/languages"
	"tools.zach/dev/idecord/internal/prefs"
)

// res is a test resource.
type res struct {
	path  string
	name  string
	scope prefs.ScopeRef
	kind  string
}

func (r res) Path() string                { return r.path }
func (r res) DisplayName() string         { return r.name }
func (r res) OwningScope() prefs.ScopeRef { return r.scope }
func (r res) Kind() string                { return r.kind }

// fixedPrefs resolves every scope to the same view, except for display names.
type fixedPrefs struct {
	view  prefs.Effective
	names map[prefs.ScopeRef]string
}

func (f fixedPrefs) Resolve(scope prefs.ScopeRef) prefs.Effective {
	e := f.view
	e.ScopeDisplayName = f.names[scope]
	return e
}

var anchors = elapsed.Anchors{
	OnStartup:       time.Unix(100, 0),
	OnScopeEntry:    time.Unix(200, 0),
	OnResourceEntry: time.Unix(300, 0),
}

func javaInput() Input {
	return Input{
		Kind:               KindFile,
		FileName:           "Foo.java",
		Scope:              "Bar",
		DetailsTemplate:    editingDetails,
		StateTemplate:      workingState,
		ClassifiesLanguage: true,
	}
}

// ///////////////////////////////////////////////
// Templates
// ///////////////////////////////////////////////

func TestBuildTemplateVariables(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		mutate func(*prefs.Effective)
		want   string
	}{
		{"all visible", "${file} in ${project} (${language})", nil, "Foo.java in Bar (Java)"},
		{"file hidden", "${file} in ${project} (${language})", func(e *prefs.Effective) { e.ShowsFileName = false }, "? in Bar (Java)"},
		{"project hidden", "${file} in ${project}", func(e *prefs.Effective) { e.ShowsScopeName = false }, "Foo.java in ?"},
		{"base name and extension", "${file.baseName}|${file.extension}", nil, "Foo|java"},
		{"base name hidden", "${file.baseName}|${file.extension}", func(e *prefs.Effective) { e.ShowsFileName = false }, "?|?"},
		{"display name override", "${project}", func(e *prefs.Effective) { e.ScopeDisplayName = "The Bar" }, "The Bar"},
		{"blank display name ignored", "${project}", func(e *prefs.Effective) { e.ScopeDisplayName = "  " }, "Bar"},
		{"language ignores icon flag", "${language}", func(e *prefs.Effective) { e.ShowsLanguageIcon = false }, "Java"},
		{"unknown variable kept", "${branch} ${file}", nil, "${branch} Foo.java"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prefs.Defaults()
			p.UsesCustomWording = true
			p.CustomDetailsTemplate = tt.tmpl
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			got, _ := Build(javaInput(), p, anchors).Details()
			if got != tt.want {
				t.Errorf("details = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildUnknownProject(t *testing.T) {
	in := javaInput()
	in.Scope = ""
	got, _ := Build(in, prefs.Defaults(), anchors).State()
	if got != "Working on "+UnknownScope {
		t.Errorf("state = %q", got)
	}
}

func TestBuildCustomWordingFallsBack(t *testing.T) {
	p := prefs.Defaults()
	p.UsesCustomWording = true
	p.CustomStateTemplate = "Shipping ${project}"

	out := Build(javaInput(), p, anchors)
	if got, _ := out.Details(); got != "Editing Foo.java" {
		t.Errorf("details = %q, want built-in wording", got)
	}
	if got, _ := out.State(); got != "Shipping Bar" {
		t.Errorf("state = %q", got)
	}

	p.UsesCustomWording = false
	if got, _ := Build(javaInput(), p, anchors).State(); got != "Working on Bar" {
		t.Errorf("custom wording off: state = %q", got)
	}
}

func TestApplyTemplateTruncates(t *testing.T) {
	got := applyTemplate(strings.Repeat("é", 200), templateVars{})
	if n := len([]rune(got)); n != maxFieldLen {
		t.Errorf("truncated to %d runes, want %d", n, maxFieldLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text should end in an ellipsis: %q", got)
	}
}

// ///////////////////////////////////////////////
// Language, Hover and Elapsed Time
// ///////////////////////////////////////////////

func TestBuildLanguageIcon(t *testing.T) {
	p := prefs.Defaults()
	out := Build(javaInput(), p, anchors)
	if tag, ok := out.Language(); !ok || tag != languages.Java {
		t.Errorf("language = %q, %v", tag, ok)
	}
	if hover, _ := out.HoverText(); hover != "Programming in Java" {
		t.Errorf("hover = %q", hover)
	}

	p.ShowsLanguageIcon = false
	out = Build(javaInput(), p, anchors)
	if _, ok := out.Language(); ok {
		t.Error("language should be absent when the icon is hidden")
	}
	if _, ok := out.HoverText(); ok {
		t.Error("hover should be absent when the icon is hidden")
	}
}

func TestInputLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want languages.Tag
	}{
		{"classified", Input{FileName: "main.go", ClassifiesLanguage: true}, languages.Go},
		{"not classified", Input{FileName: "main.go"}, languages.Unknown},
		{"forced", Input{FileName: "Foo.class", ClassifiesLanguage: true, Tag: languages.Binary}, languages.Binary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Language(); got != tt.want {
				t.Errorf("Language() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildStartAnchor(t *testing.T) {
	tests := []struct {
		moment prefs.ResetMoment
		want   int64
	}{
		{prefs.ResetOnStartup, 100},
		{prefs.ResetOnNewScope, 200},
		{prefs.ResetOnNewResource, 300},
		{prefs.ResetMoment(7), 100},
	}
	for _, tt := range tests {
		t.Run(tt.moment.String(), func(t *testing.T) {
			p := prefs.Defaults()
			p.ResetsElapsedTimeOn = tt.moment
			start, ok := Build(javaInput(), p, anchors).Start()
			if !ok || start.Unix() != tt.want {
				t.Errorf("start = %v, %v, want %d", start.Unix(), ok, tt.want)
			}
		})
	}

	p := prefs.Defaults()
	p.ShowsElapsedTime = false
	if _, ok := Build(javaInput(), p, anchors).Start(); ok {
		t.Error("start should be absent when elapsed time is hidden")
	}
}

func TestBuildIgnoresPresenceVisibility(t *testing.T) {
	p := prefs.Defaults()
	p.ShowsPresence = false
	if Build(javaInput(), p, anchors).IsEmpty() {
		t.Error("Build should still produce a presence when presence is hidden")
	}
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

func TestRegistryRanking(t *testing.T) {
	named := func(name string) Adapter {
		return AdapterFunc(func(Resource) (Input, error) { return Input{FileName: name}, nil })
	}
	always := func(Resource) bool { return true }

	reg := &Registry{}
	reg.Register(always, Rank{Distance: 2, Priority: 9}, named("far"))
	reg.Register(always, Rank{Distance: 1, Priority: 0}, named("near-low"))
	reg.Register(always, Rank{Distance: 1, Priority: 5}, named("near-high"))
	reg.Register(always, Rank{Distance: 1, Priority: 5}, named("near-high-later"))

	a, ok := reg.Lookup(res{path: "x"})
	if !ok {
		t.Fatal("Lookup found nothing")
	}
	in, _ := a.Adapt(res{})
	if in.FileName != "near-high" {
		t.Errorf("picked %q, want near-high", in.FileName)
	}
	if reg.Len() != 4 {
		t.Errorf("Len() = %d", reg.Len())
	}
}

func TestDefaultRegistry(t *testing.T) {
	s := New(nil, fixedPrefs{view: prefs.Defaults()})
	tests := []struct {
		name        string
		r           Resource
		wantDetails string
		wantTag     languages.Tag
	}{
		{"source file", res{path: "/src/Bar/Foo.java", name: "Foo.java", scope: "Bar"}, "Editing Foo.java", languages.Java},
		{"class file", res{path: "/src/Bar/out/Foo.class", scope: "Bar"}, "Reading Foo.class", languages.Binary},
		{"terminal", res{path: "term://1", name: "bash", scope: "Bar", kind: KindTerminal}, "Using the terminal", languages.Terminal},
		{"unknown type", res{path: "/src/Bar/LICENSE", scope: "Bar"}, "Editing LICENSE", languages.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Synthesize(tt.r, anchors)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			if got, _ := p.Details(); got != tt.wantDetails {
				t.Errorf("details = %q, want %q", got, tt.wantDetails)
			}
			if got, _ := p.Language(); got != tt.wantTag {
				t.Errorf("language = %q, want %q", got, tt.wantTag)
			}
			if got, _ := p.State(); got != "Working on Bar" {
				t.Errorf("state = %q", got)
			}
		})
	}
}

func TestMatchGlob(t *testing.T) {
	if _, err := MatchGlob("[broken"); err == nil {
		t.Error("MatchGlob should reject an invalid pattern")
	}
	pred := MustMatchGlob("**/*.class")
	if !pred(res{path: "/a/b/C.class"}) {
		t.Error("absolute path should match")
	}
	if pred(res{path: "/a/b/C.java"}) {
		t.Error("java file should not match")
	}
	if !MatchAny(MatchKind("x"), pred)(res{path: "C.class"}) {
		t.Error("MatchAny should accept when one predicate does")
	}
}

// ///////////////////////////////////////////////
// Synthesizer
// ///////////////////////////////////////////////

func TestSynthesizeNil(t *testing.T) {
	s := New(nil, fixedPrefs{view: prefs.Defaults()})
	p, err := s.Synthesize(nil, anchors)
	if p != nil || err != nil {
		t.Errorf("Synthesize(nil) = %v, %v", p, err)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	s := New(&Registry{}, fixedPrefs{view: prefs.Defaults()})
	if _, err := s.Synthesize(res{path: "/x"}, anchors); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("empty registry error = %v, want ErrNoAdapter", err)
	}

	s = New(nil, fixedPrefs{view: prefs.Defaults()})
	if _, err := s.Synthesize(res{}, anchors); !errors.Is(err, errNoFileName) {
		t.Errorf("nameless file error = %v, want errNoFileName", err)
	}
}

func TestSynthesizeUsesScopePreferences(t *testing.T) {
	s := New(nil, fixedPrefs{view: prefs.Defaults(), names: map[prefs.ScopeRef]string{"Bar": "Bar Service"}})
	p, err := s.Synthesize(res{path: "/Bar/main.go", scope: "Bar"}, anchors)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := p.State(); got != "Working on Bar Service" {
		t.Errorf("state = %q", got)
	}
	if got, _ := p.Scope(); got != "Bar" {
		t.Errorf("scope = %q", got)
	}
}
