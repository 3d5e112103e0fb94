package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitsarchive/calassoc/cmd/caladmin/command"
	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/configs/calassoc"
	"github.com/fitsarchive/calassoc/pkg/domain/archive"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/policy/instruments"
)

func connect(stderr io.Writer) command.Connector {
	return func(ctx context.Context, opts command.Options) (*command.Env, func(), error) {
		if opts.Config == "" {
			return nil, nil, fmt.Errorf("%w: --config (or CALASSOC_CONFIG) is required", domerr.ErrUsage)
		}
		conf, err := calassoc.LoadConfig(opts.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domerr.ErrConfiguration, err)
		}

		arc, err := archive.New(ctx, conf, archive.WithSchemaRepository(opts.SchemaRepo))
		if err != nil {
			return nil, nil, err
		}

		logger := log.New(stderr, "[caladmin] ", log.LstdFlags)
		return &command.Env{
			Frames: arc.Frame().Database(),
			Cache:  arc.Cache().Database(),
			Queue:  arc.Queue().Database(),
			Schema: arc.Schema().Database(),
			Assoc: association.New(
				arc.Frame().Database(),
				arc.Cache().Database(),
				arc.Queue().Database(),
				instruments.Registry(),
				association.WithQueryTimeout(conf.Database().QueryTimeout()),
				association.WithLogger(logger),
			),
		}, func() { arc.Close() }, nil
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	code := command.Execute(ctx, connect(os.Stderr), os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
