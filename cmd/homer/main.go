package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	wfsqlite "github.com/cschleiden/go-workflows/backend/sqlite"
	"github.com/cschleiden/go-workflows/client"
	"github.com/cschleiden/go-workflows/worker"
	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/topranks/homer/internal/application"
	"github.com/topranks/homer/internal/config"
	"github.com/topranks/homer/internal/domain"
	"github.com/topranks/homer/internal/infrastructure/dbosworkflows"
	"github.com/topranks/homer/internal/infrastructure/goworkflows"
	"github.com/topranks/homer/internal/infrastructure/sqlite"
	"github.com/topranks/homer/internal/infrastructure/sshtransport"
	"github.com/topranks/homer/internal/infrastructure/syncworkflow"
	"github.com/topranks/homer/internal/inventory"
	"github.com/topranks/homer/internal/observability"
	"github.com/topranks/homer/internal/render"
)

const (
	exitOK = 0
	// exitDiff reports that devices differ from the generated configuration,
	// or that changes were applied. Scripts use it to tell "clean" from
	// "something changed" without parsing output.
	exitDiff    = 99
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		configPath string
		verbose    bool
		quiet      bool
		outputDir  string
		exitCode   = exitOK
	)

	root := &cobra.Command{
		Use:           "homer",
		Short:         "Configuration manager for network devices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/homer/config.toml", "main configuration file to load")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "silent mode, only log warnings")

	buildApp := func() (*app, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger := observability.InitLogger("homer", observability.LevelFromFlags(verbose, quiet))
		return newApp(cfg, logger)
	}

	generateCmd := &cobra.Command{
		Use:   "generate <query>",
		Short: "Generate the configurations locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), args[0], outputDir)
		},
	}
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "out", "directory to write generated configurations to")

	diffCmd := &cobra.Command{
		Use:   "diff <query>",
		Short: "Compare the generated configuration against the target devices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			exitCode, err = a.execute(cmd.Context(), domain.ModeDiff, args[0])
			return err
		},
	}

	commitCmd := &cobra.Command{
		Use:   "commit <query>",
		Short: "Apply the generated configuration to the target devices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			exitCode, err = a.execute(cmd.Context(), domain.ModeCommit, args[0])
			return err
		},
	}

	root.AddCommand(generateCmd, diffCmd, commitCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "homer:", err)
		return exitFailure
	}
	return exitCode
}

// app holds the assembled collaborators for one CLI invocation.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	devices  *domain.Devices
	resolver *inventory.Resolver
	renderer *render.Renderer
}

func newApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	devices, err := inventory.LoadDevices(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	hierarchy, err := inventory.NewHierarchicalConfig(cfg.BasePath, cfg.PrivateBasePath)
	if err != nil {
		return nil, err
	}
	source, err := inventory.NewDataSource(cfg.DataSource, cfg.BasePath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		devices:  devices,
		resolver: &inventory.Resolver{Config: hierarchy, Source: source},
		renderer: render.NewRenderer(cfg.BasePath),
	}, nil
}

// candidates renders the configuration for every device matched by query.
func (a *app) candidates(ctx context.Context, query string) ([]application.DeviceCandidate, error) {
	selected, err := inventory.Select(a.devices, query)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no devices matched query %q", query)
	}

	targets := make([]application.DeviceCandidate, 0, len(selected))
	for _, device := range selected {
		data, err := a.resolver.Resolve(ctx, device)
		if err != nil {
			return nil, err
		}
		candidate, err := a.renderer.Render(device, data)
		if err != nil {
			return nil, err
		}
		targets = append(targets, application.DeviceCandidate{Device: device, Candidate: candidate})
	}
	return targets, nil
}

func (a *app) generate(ctx context.Context, query, outputDir string) error {
	targets, err := a.candidates(ctx, query)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, target := range targets {
		path := filepath.Join(outputDir, target.Device.FQDN+".conf")
		if err := os.WriteFile(path, []byte(target.Candidate), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		a.logger.Info().Str("device", target.Device.FQDN).Str("path", path).Msg("configuration generated")
	}
	return nil
}

func (a *app) execute(ctx context.Context, mode domain.RunMode, query string) (int, error) {
	targets, err := a.candidates(ctx, query)
	if err != nil {
		return exitFailure, err
	}

	db, err := sqlite.Open(a.cfg.DBPath)
	if err != nil {
		return exitFailure, err
	}
	defer db.Close()

	transport := &sshtransport.Transport{
		Username: a.cfg.Transport.Username,
		KeyFile:  a.cfg.Transport.KeyFile,
		Port:     a.cfg.Transport.Port,
		Timeout:  a.cfg.Transport.Timeout.Duration,
		Logger:   a.logger,
	}
	wf := &domain.DeviceWorkflow{
		Transport:   transport,
		Records:     &sqlite.RunRecordRepo{DB: db},
		MaxAttempts: a.cfg.MaxAttempts,
	}

	runner, cleanup, err := a.buildRunner(ctx, wf)
	if err != nil {
		return exitFailure, err
	}
	defer cleanup()

	service := &application.RunService{
		Runner:      runner,
		Runs:        &sqlite.RunRepo{DB: db},
		Concurrency: a.cfg.Concurrency,
		RedactDiff:  a.cfg.RedactDiff,
		Logger:      a.logger,
	}
	report, err := service.Execute(ctx, mode, query, targets)
	if err != nil {
		return exitFailure, err
	}

	printReport(os.Stdout, report)
	switch report.Status {
	case domain.RunFailure:
		return exitFailure, nil
	case domain.RunSuccessWithDiff:
		return exitDiff, nil
	default:
		return exitOK, nil
	}
}

// buildRunner constructs the configured workflow engine. The returned cleanup
// stops engine background work and must run after the fleet run completes.
func (a *app) buildRunner(ctx context.Context, wf *domain.DeviceWorkflow) (domain.DeviceRunner, func(), error) {
	switch a.cfg.Engine {
	case "sync":
		runner, err := (&syncworkflow.Engine{}).DeviceRunner(wf)
		return runner, func() {}, err

	case "goworkflows":
		b := wfsqlite.NewSqliteBackend(a.cfg.DBPath + ".workflows")
		w := worker.New(b, nil)
		engine := &goworkflows.Engine{Worker: w, Client: client.New(b)}
		runner, err := engine.DeviceRunner(wf)
		if err != nil {
			return nil, nil, err
		}
		workerCtx, cancel := context.WithCancel(ctx)
		if err := w.Start(workerCtx); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("start workflow worker: %w", err)
		}
		cleanup := func() {
			cancel()
			_ = w.WaitForCompletion()
		}
		return runner, cleanup, nil

	case "dbos":
		dbosCtx, err := dbos.NewDBOSContext(ctx, dbos.Config{
			AppName:     "homer",
			DatabaseURL: a.cfg.DBOSDatabaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialize dbos: %w", err)
		}
		// Workflow registration must precede Launch.
		runner, err := (&dbosworkflows.Engine{DBOSCtx: dbosCtx}).DeviceRunner(wf)
		if err != nil {
			return nil, nil, err
		}
		if err := dbos.Launch(dbosCtx); err != nil {
			return nil, nil, fmt.Errorf("launch dbos: %w", err)
		}
		cleanup := func() { dbos.Shutdown(dbosCtx, a.cfg.Transport.Timeout.Duration) }
		return runner, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown engine %q", a.cfg.Engine)
	}
}

func printReport(w io.Writer, report domain.FleetReport) {
	for _, res := range report.Results {
		printDevice(w, res)
	}
	fmt.Fprintf(w, "run %s: %s\n", report.RunID, report.Status)
}

func printDevice(w io.Writer, res domain.DeviceResult) {
	switch res.Diff.Kind {
	case domain.DiffFailed:
		fmt.Fprintf(w, "%s: diff failed: %s\n", res.FQDN, res.Diff.Reason)
		return
	case domain.DiffNone:
		if res.Mode == domain.ModeDiff {
			fmt.Fprintf(w, "%s: no differences\n", res.FQDN)
		}
	case domain.DiffFound:
		if res.Diff.Redacted {
			fmt.Fprintf(w, "%s: differences found (content redacted)\n", res.FQDN)
		} else {
			fmt.Fprintf(w, "%s: differences found\n%s\n", res.FQDN, res.Diff.Text)
		}
	}
	if res.Mode != domain.ModeCommit {
		return
	}

	switch res.Outcome.Kind {
	case domain.OutcomeCommitted:
		fmt.Fprintf(w, "%s: committed (attempts: %d)\n", res.FQDN, res.Outcome.Attempts)
	case domain.OutcomeSkippedNoChange:
		fmt.Fprintf(w, "%s: no change needed, commit skipped\n", res.FQDN)
	case domain.OutcomeAborted:
		fmt.Fprintf(w, "%s: commit aborted: %s\n", res.FQDN, res.Outcome.Reason)
	case domain.OutcomeFailed:
		fmt.Fprintf(w, "%s: commit failed: %s\n", res.FQDN, res.Outcome.Reason)
	}
}
