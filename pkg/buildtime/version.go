// Package buildtime tells which build of calassoc is running.
//
// VERSION and revision are rewritten by the release build. When revision is
// left as "HEAD", the vcs revision recorded by the go toolchain is used.
package buildtime

import (
	_ "embed"
	"runtime/debug"
	"strings"
	"sync"
)

//go:embed VERSION
var version string

//go:embed revision
var revision string

var resolve = sync.OnceValues(func() (string, string) {
	v := strings.TrimSpace(version)
	r := strings.TrimSpace(revision)
	if r != "" && r != "HEAD" {
		return v, r
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v, r
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return v, s.Value
		}
	}
	return v, r
})

func Version() string {
	v, _ := resolve()
	return v
}

func Revision() string {
	_, r := resolve()
	return r
}

// VersionString is like "v0.1.0 (commit: 0123abc)".
func VersionString() string {
	v, r := resolve()
	return v + " (commit: " + r + ")"
}
