package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request, and its response with the latency.
//
// Failed requests are logged in warning level.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		begin := time.Now()
		c.Logger().Debugf("< %s %s (from %s)", req.Method, req.URL, c.RealIP())

		err := next(c)

		status := c.Response().Status
		if herr, ok := err.(*echo.HTTPError); ok {
			status = herr.Code
		}
		logf := c.Logger().Infof
		if err != nil {
			logf = c.Logger().Warnf
		}
		logf(
			"> %s %s: status = %d in %s / error = %v",
			req.Method, req.URL, status, time.Since(begin), err,
		)
		return err
	}
}

// SetLevel sets the level of echo's logger: debug|info|warn|error|off.
//
// Unknown or empty level falls back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	levels := map[string]log.Lvl{
		"debug": log.DEBUG,
		"info":  log.INFO,
		"warn":  log.WARN,
		"error": log.ERROR,
		"off":   log.OFF,
	}
	lvl, ok := levels[strings.ToLower(loglevel)]
	if !ok {
		lvl = log.WARN
	}
	e.Logger.SetLevel(lvl)
	if !ok && loglevel != "" {
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
