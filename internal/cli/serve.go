package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/boothplan/internal/server"
	"github.com/matzehuels/boothplan/pkg/metrics"
)

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	addr      string
	floorPlan string
	lockKey   string
	backend   backendOpts
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve allocations over HTTP",
		Long: `Serve loads the floor plan once and answers:

  POST /v1/allocations   {"projects": [...]} -> allocation result
  GET  /v1/floorplan     maps and derived cluster grids
  GET  /healthz
  GET  /metrics          Prometheus metrics

Runs on the same floor plan are serialised; a request that finds a run in
progress gets 409. Use --redis to share the lock and result cache between
instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVarP(&opts.floorPlan, "floorplan", "f", "", "floor plan file (default floorplan.toml)")
	cmd.Flags().StringVar(&opts.lockKey, "lock-key", "", "name of the run lock (default: hash of the floor plan)")
	opts.backend.register(cmd)
	_ = cmd.RegisterFlagCompletionFunc("floorplan", completeFiles("toml", "yaml", "yml", "json"))

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	fp, err := loadFloorPlan(opts.floorPlan)
	if err != nil {
		return err
	}

	runner, closeBackend, err := c.newRunner(ctx, opts.backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			c.Logger.Warn("close backend", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.New(reg).Install()

	srv, err := server.New(server.Config{
		FloorPlan: fp,
		Runner:    runner,
		LockKey:   opts.lockKey,
		Gatherer:  reg,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	printInfo("Serving %d clusters on %s", len(fp.Clusters), StyleNumber.Render(opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}
