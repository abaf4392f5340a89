// Package main prints the idecord build version for -ldflags
// "-X main.version=...". It derives the string from git describe and the
// release manifest so the same command works on every platform.
//
//	untagged, clean:     0.0.0-dev+05ffee5
//	untagged, dirty:     0.0.0-dev+05ffee5.dirty
//	on v0.1.0:           0.1.0
//	on v0.1.0, dirty:    0.1.0-dirty
//	3 commits past:      0.1.0-dev.3+g1234567
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"
	"tools.zach/dev/idecord/internal/paths"
)

func main() {
	fmt.Print(render(readBase(paths.ReleaseManifest), probe()))
}

// gitState is what buildver needs to know about the working tree.
type gitState struct {
	// describe is the git describe output against v* tags, empty when the
	// repository has no such tag.
	describe string
	hash     string
	dirty    bool
}

func probe() gitState {
	var st gitState
	st.describe, _ = git("describe", "--tags", "--match", "v*", "--dirty")
	st.hash, _ = git("rev-parse", "--short=7", "HEAD")
	if out, err := git("status", "--porcelain"); err == nil {
		st.dirty = out != ""
	}
	return st
}

func git(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// render builds the version string. A describe result wins; otherwise base
// becomes a dev pre-release carrying the short hash.
func render(base string, st gitState) string {
	if st.describe != "" {
		return fromDescribe(st.describe)
	}
	if st.hash == "" {
		return base + "-dev"
	}
	if st.dirty {
		return base + "-dev+" + st.hash + ".dirty"
	}
	return base + "-dev+" + st.hash
}

// fromDescribe rewrites "v0.1.0-3-g1234567-dirty" as
// "0.1.0-dev.3+g1234567.dirty". An exact tag keeps its -dirty suffix.
func fromDescribe(desc string) string {
	clean, dirty := strings.CutSuffix(desc, "-dirty")
	clean = strings.TrimPrefix(clean, "v")

	rest, hash, ok := cutLast(clean, "-")
	if ok && strings.HasPrefix(hash, "g") {
		if tag, n, ok := cutLast(rest, "-"); ok && isDigits(n) {
			meta := hash
			if dirty {
				meta += ".dirty"
			}
			return fmt.Sprintf("%s-dev.%s+%s", tag, n, meta)
		}
	}

	if dirty {
		return clean + "-dirty"
	}
	return clean
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// readBase returns the root entry of the release manifest, or "0.0.0".
func readBase(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "0.0.0"
	}
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "0.0.0"
	}
	if v := manifest["."]; v != "" {
		return v
	}
	return "0.0.0"
}
