package shiftreconcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phillip-england/shiftrecon/internal/apiapp"
	"github.com/phillip-england/shiftrecon/internal/config"
	"github.com/phillip-england/shiftrecon/internal/envutil"
	"github.com/phillip-england/shiftrecon/internal/logging"
	"github.com/phillip-england/shiftrecon/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ErrUsage = errors.New("usage")

const defaultConfigPath = "shiftrecon.yaml"

type app struct {
	configPath string
	envFile    string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	root := newRootCmd(out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err.Error())
	}
	return err
}

func PrintUsage(w io.Writer) {
	root := newRootCmd(w)
	root.SetOut(w)
	_ = root.Usage()
}

func usageError(msg string) error {
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "shiftrecon",
		Short:         "Reconcile planned shifts with clock-in/clock-out records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err.Error())
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", defaultConfigPath, "path to the YAML config")
	pf.StringVar(&a.envFile, "env-file", ".env", "path to a .env file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.initCmd(), a.reconcileCmd(), a.serveCmd(), a.watchCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := envutil.LoadDotEnv(a.envFile); err != nil {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}
	if flag := cmd.Flag("config"); flag != nil && !flag.Changed {
		if path, ok := config.PathFromEnv(); ok {
			a.configPath = path
		}
	}
	if cmd.Name() == "init" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	log, err := logging.New(a.cfg.Logging, a.verbose)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file and .env",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(a.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
				}
			}
			if err := a.cfg.Save(a.configPath); err != nil {
				return err
			}
			if err := envutil.WriteDotEnv(a.envFile, a.cfg.EnvTemplate(), force); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\nwrote %s\n", a.configPath, a.envFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	var (
		in          string
		opts        pipeline.FileOptions
		clockExport string
		noBackup    bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fill actual times into a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return usageError("--in is required")
			}
			opts.Backup = !noBackup
			if clockExport != "" {
				export, err := os.Open(clockExport)
				if err != nil {
					return fmt.Errorf("open clock export: %w", err)
				}
				defer export.Close()
				opts.ClockExport = &pipeline.ClockExport{Filename: clockExport, Reader: export}
			}

			env := pipeline.NewEnv(a.cfg, a.log)
			res, err := pipeline.ProcessFile(cmd.Context(), env, in, opts)
			if err != nil {
				return err
			}
			r := res.Report
			fmt.Fprintf(a.out, "run %s: %d shifts, %d with start and end, %d names corrected, %d unmatched, %d consecutive pairs, %s h\n",
				r.RunID, r.TotalShifts, r.ShiftsWithBoth, r.SafeMatches, r.NoMatches, r.ConsecutivePairs, r.WorkedHours.StringFixed(2))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "workbook to reconcile")
	f.StringVar(&opts.Out, "out", "", "output path (default: overwrite --in)")
	f.StringVar(&clockExport, "clock-export", "", "separate clock log export (.xls or .xlsx)")
	f.StringVar(&opts.HTMLPath, "html", "", "write an HTML summary to this path")
	f.BoolVar(&opts.DryRun, "dry-run", false, "report only, do not write the workbook")
	f.BoolVar(&noBackup, "no-backup", false, "skip the .orig.xz backup when overwriting --in")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.API.Addr = addr
			}
			err := apiapp.Run(cmd.Context(), apiapp.Config{App: a.cfg, Logger: a.log})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides api.addr)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var inbox, outbox string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile every workbook dropped into an inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inbox == "" || outbox == "" {
				return usageError("--inbox and --outbox are required")
			}
			err := newInboxWatcher(inbox, outbox, a.cfg, a.log).Run(cmd.Context())
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "directory to watch")
	cmd.Flags().StringVar(&outbox, "outbox", "", "directory for results")
	return cmd
}
