package buildtime_test

import (
	"strings"
	"testing"

	"github.com/fitsarchive/calassoc/pkg/buildtime"
)

func TestVersionString(t *testing.T) {
	actual := buildtime.VersionString()
	if !strings.HasPrefix(actual, buildtime.Version()+" (commit: ") {
		t.Errorf("unexpected version string: %s", actual)
	}
	if buildtime.Version() == "" || buildtime.Revision() == "" {
		t.Errorf("empty: (version, revision) = (%q, %q)", buildtime.Version(), buildtime.Revision())
	}
}
