package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/buildtime"
	"github.com/fitsarchive/calassoc/pkg/configs/calassoc"
	"github.com/fitsarchive/calassoc/pkg/domain/archive"
	"github.com/fitsarchive/calassoc/pkg/loop/recurring"
	"github.com/fitsarchive/calassoc/pkg/policy/instruments"
	"github.com/fitsarchive/calassoc/pkg/tracing"
	"github.com/fitsarchive/calassoc/pkg/utils/args"
	"github.com/fitsarchive/calassoc/pkg/utils/filewatch"
	"github.com/fitsarchive/calassoc/pkg/utils/retry"
	"github.com/fitsarchive/calassoc/pkg/utils/try"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := byLogger(log.Default(), WithTimestamp())
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("CALASSOC_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("CALASSOC_SCHEMA"), "schema repository path",
	)
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`+
			` (default: worker.policy in config)`,
	)
	pversion := flag.Bool("version", false, "show version")
	// parse command line flags
	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return
	}

	{
		// restart when config is modified
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(calassoc.LoadConfig(*pconfig)).OrFatal(logger)

	p := policy.Value()
	if !policy.IsSet() {
		p = try.To(recurring.ParsePolicy(conf.Worker().Policy())).OrFatal(logger)
	}

	shutdown := try.To(tracing.Setup(ctx, conf.Tracing(), "calworker")).OrFatal(logger)
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
		// stop when the schema is upgraded by others
		ctx_, ccan := arc.Schema().Database().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	assoc := association.New(
		arc.Frame().Database(),
		arc.Cache().Database(),
		arc.Queue().Database(),
		instruments.Registry(),
		association.WithQueryTimeout(conf.Database().QueryTimeout()),
		association.WithLogger(byLogger(logger, Copied(), WithPrefix("[association] "))),
	)

	logger.Printf(
		`start %d workers /w policy "%s"`, conf.Worker().Concurrency(), p.String(),
	)

	workers, wctx := errgroup.WithContext(ctx)
	for range conf.Worker().Concurrency() {
		name := uuid.NewString()
		workers.Go(func() error {
			stats, err := StartRefreshLoop(
				wctx, logger, arc, assoc, name,
				LoopManifest{Policy: recurring.UntilError(p)},
			)
			logger.Printf("worker %s stopped: %s", name, stats)
			return err
		})
	}

	// housekeeping runs alongside workers, and stops when they are all over.
	hctx, hcancel := context.WithCancel(wctx)
	defer hcancel()
	housekeeping := make(chan error, 1)
	go func() {
		housekeeping <- StartLeaseLoop(hctx, logger, arc)
	}()

	err := workers.Wait()
	hcancel()
	if herr := <-housekeeping; herr != nil && !errors.Is(herr, context.Canceled) {
		logger.Println("lease loop:", herr)
	}

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		if context.Cause(ctx) == context.Canceled {
			// stopped by signal
			logger.Println("shutdown")
			return
		}
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}
	logger.Fatal(err)
}
