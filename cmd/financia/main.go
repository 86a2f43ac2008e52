package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"financia/internal/cli"
	"financia/internal/config"
	"financia/internal/log"
)

var version = "dev"

// rootOptions is shared by every subcommand once PersistentPreRunE ran.
type rootOptions struct {
	user    string
	envFile string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "financia",
		Short: "💰 Personal monthly budget planner",
		Long: `financia keeps a monthly budget: salary, category budgets, variable
expenses, an investment projection and an archive of closed months.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(envFiles(opts.envFile)...); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = cli.SetupLogger(cfg, cmd.ErrOrStderr()).WithComponent(log.ComponentCLI)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.user, "user", "", "budget owner (default: $USER_ID)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default: .env)")

	cmd.AddCommand(
		serveCmd(opts),
		summaryCmd(opts),
		projectCmd(opts),
		salaryCmd(opts),
		settingsCmd(opts),
		categoryCmd(opts),
		expenseCmd(opts),
		investCmd(opts),
		closeMonthCmd(opts),
		historyCmd(opts),
		importCmd(opts),
		versionCmd(),
	)
	return cmd
}

func envFiles(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

// withApp opens the user's budget, runs fn and saves what fn changed.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(app *cli.App) error) (err error) {
	ctx := cmd.Context()
	app, err := cli.OpenApp(ctx, opts.cfg, opts.logger, opts.user)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = fmt.Errorf("save budget: %w", closeErr)
		}
	}()
	return fn(app)
}

func main() {
	ctx, stop := cli.SignalContext(context.Background(), log.New(log.Config{Output: os.Stderr}))
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
