// Package update checks the release manifest for a newer idecord build.
//
// The manifest is a JSON object mapping component paths to versions; the
// "." entry is the latest daemon release. Failures are never fatal: the
// daemon logs them at debug level and carries on.
package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/idecord/internal/paths"
)

// ///////////////////////////////////////////////
// Manifest Location
// ///////////////////////////////////////////////

// Set at build time via:
//
//	-X tools.zach/dev/idecord/internal/update.ldOwner=...
//	-X tools.zach/dev/idecord/internal/update.ldRepo=...
var (
	ldOwner string
	ldRepo  string
)

var (
	defaultURL     string
	defaultURLOnce sync.Once
)

// githubRemoteRe extracts owner and repo from HTTPS and SSH GitHub remotes.
var githubRemoteRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.\s]+)`)

// DefaultManifestURL returns the raw GitHub URL of the release manifest, or
// "" when the repository cannot be determined. Build-time ldflags win over
// the local git remote.
func DefaultManifestURL() string {
	defaultURLOnce.Do(func() {
		owner, repo := ldOwner, ldRepo
		if owner == "" || repo == "" {
			owner, repo = gitRemote()
		}
		defaultURL = rawURL(owner, repo, paths.ReleaseManifest)
	})
	return defaultURL
}

func gitRemote() (owner, repo string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
	if err != nil {
		slog.Debug("update: ldflags not set and git remote unavailable", "error", err)
		return "", ""
	}
	return parseRemote(string(out))
}

func parseRemote(s string) (owner, repo string) {
	m := githubRemoteRe.FindStringSubmatch(s)
	if len(m) != 3 {
		return "", ""
	}
	return m[1], m[2]
}

func rawURL(owner, repo, path string) string {
	if owner == "" || repo == "" {
		return ""
	}
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/main/" + path
}

// ///////////////////////////////////////////////
// Checker
// ///////////////////////////////////////////////

// maxManifestSize bounds the manifest body.
const maxManifestSize = 64 << 10

// Checker fetches the release manifest.
type Checker struct {
	url    string
	client *retryablehttp.Client
	log    *slog.Logger
}

// NewChecker returns a checker for the manifest at url; "" selects
// [DefaultManifestURL].
func NewChecker(url string, log *slog.Logger) *Checker {
	if url == "" {
		url = DefaultManifestURL()
	}
	if log == nil {
		log = slog.Default()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	return &Checker{url: url, client: client, log: log}
}

// Latest returns the daemon version published in the manifest.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("no manifest URL configured")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

// Check compares current against the manifest and logs when a newer release
// exists. It reports the latest version and whether it is newer.
func (c *Checker) Check(ctx context.Context, current string) (latest string, newer bool) {
	if c.url == "" {
		c.log.Debug("skipping version check: no manifest URL configured")
		return "", false
	}
	latest, err := c.Latest(ctx)
	if err != nil {
		c.log.Debug("version check failed", "error", err)
		return "", false
	}
	if latest == "" || latest == current {
		return latest, false
	}
	if Less(current, latest) {
		c.log.Info("new version available", "current", current, "latest", latest)
		return latest, true
	}
	return latest, false
}

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

// version is a parsed "MAJOR.MINOR.PATCH[-pre][+build]" string.
type version struct {
	core [3]int
	pre  bool
}

// parseVersion accepts an optional "v" prefix. Build metadata is ignored.
func parseVersion(s string) (version, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	var v version
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.pre = true
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return version{}, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return version{}, false
		}
		v.core[i] = n
	}
	return v, true
}

// Less reports whether a is an older version than b. A pre-release sorts
// before its release. Strings that do not parse are never less.
func Less(a, b string) bool {
	va, okA := parseVersion(a)
	vb, okB := parseVersion(b)
	if !okA || !okB {
		return false
	}
	for i := range va.core {
		if va.core[i] != vb.core[i] {
			return va.core[i] < vb.core[i]
		}
	}
	return va.pre && !vb.pre
}
