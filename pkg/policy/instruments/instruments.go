// Package instruments registers calibration policies of all supported instruments.
package instruments

import (
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/policy/ghost"
	"github.com/fitsarchive/calassoc/pkg/policy/gmos"
	"github.com/fitsarchive/calassoc/pkg/policy/gnirs"
	"github.com/fitsarchive/calassoc/pkg/policy/gpi"
	"github.com/fitsarchive/calassoc/pkg/policy/igrins2"
	"github.com/fitsarchive/calassoc/pkg/policy/nici"
	"github.com/fitsarchive/calassoc/pkg/policy/nifs"
	"github.com/fitsarchive/calassoc/pkg/policy/niri"
)

func Registry() *policy.Registry {
	return policy.NewRegistry(
		gmos.New(),
		ghost.New(),
		niri.New(),
		gnirs.New(),
		nifs.New(),
		nici.New(),
		igrins2.New(),
		gpi.New(),
	)
}
