package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitsarchive/calassoc/cmd/calmgr/handlers"
	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/buildtime"
	"github.com/fitsarchive/calassoc/pkg/configs/calassoc"
	"github.com/fitsarchive/calassoc/pkg/domain/archive"
	"github.com/fitsarchive/calassoc/pkg/policy/instruments"
	"github.com/fitsarchive/calassoc/pkg/tracing"
	"github.com/fitsarchive/calassoc/pkg/utils/echoutil"
	"github.com/fitsarchive/calassoc/pkg/utils/filewatch"
	"github.com/fitsarchive/calassoc/pkg/utils/retry"
	"github.com/fitsarchive/calassoc/pkg/utils/try"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	pconfig := flag.String(
		"config", os.Getenv("CALASSOC_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("CALASSOC_SCHEMA"), "schema repository path",
	)
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pversion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return
	}

	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	{
		// quit to restart when config is modified
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatalf("can not watch configration: %s", err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(calassoc.LoadConfig(*pconfig)).OrFatal(logger)

	shutdown := try.To(tracing.Setup(ctx, conf.Tracing(), "calmgr")).OrFatal(logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Println(err)
		}
	}()

	arc := try.To(archive.Connect(
		ctx, conf, retry.Exponential(time.Second, 2, time.Minute).Wait(),
		archive.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(logger)
	defer arc.Close()

	{
		ctx_, ccan := arc.Schema().Database().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	e := echo.New()
	e.HideBanner = true

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		e.Logger.Error(err)
	}
	e.Use(middleware.Recover())
	e.Use(echoutil.LogHandlerFunc)

	assoc := association.New(
		arc.Frame().Database(),
		arc.Cache().Database(),
		arc.Queue().Database(),
		instruments.Registry(),
		association.WithQueryTimeout(conf.Database().QueryTimeout()),
		association.WithLogger(log.New(e.Logger.Output(), "[association] ", log.LstdFlags)),
	)

	caltype, selection := "caltype", "selection"
	e.GET("/calmgr/:selection", handlers.CalmgrHandler(assoc, caltype, selection))
	e.GET("/calmgr/:caltype/:selection", handlers.CalmgrHandler(assoc, caltype, selection))
	e.GET("/jsoncalmgr/:selection", handlers.JSONCalmgrHandler(assoc, caltype, selection))
	e.GET("/jsoncalmgr/:caltype/:selection", handlers.JSONCalmgrHandler(assoc, caltype, selection))

	context.AfterFunc(ctx, func() {
		logger.Printf("shutting down: %s", context.Cause(ctx))
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			logger.Printf("error on shutdown: %s", err)
		}
	})

	err := e.Start(fmt.Sprintf(":%d", conf.Server().Port()))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
}
