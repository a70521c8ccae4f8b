// Package version reports the build version, enriched with git metadata
// when running from a source checkout.
package version

import (
	"os/exec"
	"strings"
)

// Set at build time via -ldflags.
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

type gitFunc func(args ...string) (string, error)

// Resolve returns the version string shown to users. Release builds report
// the bare version; inside a git checkout whose HEAD is not a release tag,
// the output of git describe is appended.
func Resolve() string {
	return resolve(Version, gitOutput)
}

func resolve(base string, git gitFunc) string {
	if base == "" {
		base = "0.0.0"
	}

	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return base
	}
	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return base
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil || desc == "" {
		return base
	}

	// describe output already starting with the release tag keeps only the
	// distance suffix, so "v0.1.0-3-gabcdef" renders as "0.1.0-3-gabcdef".
	if rest, ok := strings.CutPrefix(desc, "v"+base+"-"); ok {
		return base + "-" + rest
	}
	return base + "-" + desc
}

func gitOutput(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
