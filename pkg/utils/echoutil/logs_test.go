package echoutil_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fitsarchive/calassoc/pkg/utils/echoutil"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func TestSetLevel(t *testing.T) {
	for when, then := range map[string]log.Lvl{
		"debug":   log.DEBUG,
		"INFO":    log.INFO,
		"warn":    log.WARN,
		"":        log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"verbose": log.WARN,
	} {
		t.Run(when, func(t *testing.T) {
			e := echo.New()
			echoutil.SetLevel(e, when)
			if actual := e.Logger.Level(); actual != then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, then)
			}
		})
	}
}

func TestLogHandlerFunc(t *testing.T) {
	for name, testcase := range map[string]struct {
		handler  echo.HandlerFunc
		thenLogs []string
	}{
		"success": {
			handler: func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			thenLogs: []string{
				`"level":"INFO"`, "> GET /calmgr/bias/N20220122S0001: status = 200",
			},
		},
		"failure": {
			handler: func(c echo.Context) error {
				return echo.NewHTTPError(http.StatusNotFound, "no such frame")
			},
			thenLogs: []string{
				`"level":"WARN"`, "> GET /calmgr/bias/N20220122S0001: status = 404",
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			buf := new(bytes.Buffer)
			e.Logger.SetOutput(buf)
			echoutil.SetLevel(e, "info")

			req := httptest.NewRequest(http.MethodGet, "/calmgr/bias/N20220122S0001", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			echoutil.LogHandlerFunc(testcase.handler)(c)

			for _, expected := range testcase.thenLogs {
				if !strings.Contains(buf.String(), expected) {
					t.Errorf("log does not contain %s: %s", expected, buf.String())
				}
			}
		})
	}
}
