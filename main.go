package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"postcomm/app/config"
	"postcomm/service"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const cliVersion = "1.0.0"

var exit = os.Exit

// loadConfig is swapped out by tests
var loadConfig = config.Load

func main() {
	RealMain()
}

// RealMain runs the command line and exits non-zero on failure
func RealMain() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var yes bool

	console := func() service.Console {
		return service.Console{In: in, Out: out, Yes: yes}
	}

	root := &cobra.Command{
		Use:          "postcomm",
		Short:        "A minimal blog: users, posts and comments",
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "answer yes to confirmation prompts")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the blog HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := service.NewLogger(cfg, errOut)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.RunServer(ctx, cfg, logger)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return service.MigrateUp(cfg, service.NewLogger(cfg, errOut), console())
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return errors.Errorf("invalid steps %q", args[0])
					}
					steps = n
				}
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return service.MigrateDown(cfg, service.NewLogger(cfg, errOut), console(), steps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return service.MigrateVersion(cfg, service.NewLogger(cfg, errOut), console())
			},
		},
	)

	var backupDir string
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage the session store",
	}
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the session store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, err = service.BackupSessions(cfg, service.NewLogger(cfg, errOut), console(), backupDir)
			return err
		},
	}
	backupCmd.Flags().StringVar(&backupDir, "dir", "data/backups", "directory to write the backup to")
	sessionsCmd.AddCommand(
		&cobra.Command{
			Use:   "clean",
			Short: "Delete every session, logging all users out",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return service.CleanSessions(cfg, service.NewLogger(cfg, errOut), console())
			},
		},
		backupCmd,
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Restore the session store from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return service.RestoreSessions(cfg, service.NewLogger(cfg, errOut), console(), args[0])
			},
		},
	)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "postcomm version %s\n", cliVersion)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, sessionsCmd, versionCmd)
	return root
}
