// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig, annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/idecord/internal/config"
)

// outPath is relative to internal/config, where go generate runs.
const outPath = "../../config.default.toml"

func main() {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote config.default.toml")
}

// render encodes cfg and annotates every documented key with its comment
// and alternatives. Documented keys the encoder omitted are emitted as
// comments at the end of their section.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# idecord Configuration",
		"# ///////////////////////////////////////////////",
		"",
	}
	var section []string
	emitted := map[string]bool{}

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			out = appendOmitted(out, docs, section, emitted)
			name := strings.Trim(trimmed, "[] ")
			section = parseSectionPath(name)
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
			out = appendComment(out, docs[name].Comment)
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		path := strings.Join(append(append([]string(nil), section...), key), ".")
		emitted[path] = true

		doc := docs[path]
		out = appendComment(out, doc.Comment)
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}
	out = appendOmitted(out, docs, section, emitted)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, strings.TrimRight("# "+cl, " "))
	}
	return out
}

// appendOmitted adds commented-out entries for documented keys of section
// that the encoder skipped, typically omitempty fields at their zero value.
func appendOmitted(out []string, docs map[string]config.FieldDoc, section []string, emitted map[string]bool) []string {
	if len(section) == 0 {
		return out
	}
	prefix := strings.Join(section, ".") + "."

	var omitted []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := docs[path]
		out = append(out, "")
		out = appendComment(out, doc.Comment)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
		emitted[path] = true
	}
	return out
}

// parseSectionPath splits a dotted section header ("discord.assets") into its
// segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last segment of a section header.
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
