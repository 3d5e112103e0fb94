package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	calerr "github.com/fitsarchive/calassoc/cmd/calmgr/errors"
	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/labstack/echo/v4"
)

// All is the caltype parameter asking for every applicable caltype.
const All = "all"

type Calibration struct {
	DataLabel string `json:"label" xml:"datalabel"`
	Filename  string `json:"name" xml:"filename"`
	URL       string `json:"url" xml:"url"`
}

type CalInfo struct {
	Caltype string        `json:"type" xml:"caltype"`
	Cals    []Calibration `json:"cals" xml:"calibration"`

	// NotFound is present only in XML, when Cals is empty.
	NotFound *struct{} `json:"-" xml:"not_found,omitempty"`
}

type Dataset struct {
	DataLabel string    `json:"label" xml:"datalabel"`
	Filename  string    `json:"filename" xml:"filename"`
	CalInfo   []CalInfo `json:"cal_info" xml:"calibration_type"`
}

// Associations is the XML document of calmgr.
type Associations struct {
	XMLName  xml.Name  `xml:"calibration_associations"`
	Datasets []Dataset `xml:"dataset"`
}

func dataset(c echo.Context, assoc association.Service, caltypeParam, selectionParam string) (Dataset, error) {
	ctx := c.Request().Context()

	var caltype *domain.Caltype
	if p := c.Param(caltypeParam); p != "" && p != All {
		ct, err := domain.AsCaltype(p)
		if err != nil {
			return Dataset{}, calerr.BadRequest(
				fmt.Sprintf("unknown caltype: %s. it should be one of %s, or %s", p, caltypes(), All),
				err,
			)
		}
		caltype = &ct
	}

	selection, err := url.PathUnescape(c.Param(selectionParam))
	if err != nil {
		return Dataset{}, calerr.BadRequest("selection is not escaped properly", err)
	}
	if selection == "" {
		return Dataset{}, calerr.BadRequest("selection is empty. it should be a filename, a data label or a frame id", nil)
	}

	target, err := assoc.Resolve(ctx, selection)
	if err != nil {
		return Dataset{}, calerr.From(err)
	}

	assocs, err := assoc.Associate(ctx, target.ID, caltype)
	if err != nil {
		return Dataset{}, calerr.From(err)
	}
	if caltype != nil && len(assocs) == 0 {
		assocs = []association.Association{{Caltype: *caltype, Cals: []domain.Frame{}}}
	}

	root := fmt.Sprintf("%s://%s/file/", c.Scheme(), c.Request().Host)
	ds := Dataset{
		DataLabel: target.DataLabel(),
		Filename:  target.Filename,
		CalInfo:   make([]CalInfo, 0, len(assocs)),
	}
	for _, a := range assocs {
		info := CalInfo{Caltype: a.Caltype.String(), Cals: make([]Calibration, 0, len(a.Cals))}
		for _, f := range a.Cals {
			info.Cals = append(info.Cals, Calibration{
				DataLabel: f.DataLabel(),
				Filename:  f.Filename,
				URL:       root + url.PathEscape(f.Filename),
			})
		}
		ds.CalInfo = append(ds.CalInfo, info)
	}
	return ds, nil
}

func caltypes() string {
	names := make([]string, len(domain.Caltypes))
	for i, c := range domain.Caltypes {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

// CalmgrHandler serves calibrations of a selection in XML.
func CalmgrHandler(assoc association.Service, caltypeParam, selectionParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ds, err := dataset(c, assoc, caltypeParam, selectionParam)
		if err != nil {
			return err
		}
		for i := range ds.CalInfo {
			if len(ds.CalInfo[i].Cals) == 0 {
				ds.CalInfo[i].NotFound = &struct{}{}
			}
		}
		return c.XMLPretty(http.StatusOK, Associations{Datasets: []Dataset{ds}}, "  ")
	}
}

// JSONCalmgrHandler serves calibrations of a selection in JSON.
func JSONCalmgrHandler(assoc association.Service, caltypeParam, selectionParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ds, err := dataset(c, assoc, caltypeParam, selectionParam)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, []Dataset{ds})
	}
}
