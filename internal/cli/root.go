// Package cli implements the reminders command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/config"
	"github.com/cromulus/reminders-cli-sub001/internal/bootstrap"
)

// app carries state shared by the commands of one invocation.
type app struct {
	jsonOutput bool

	confirm    func(title string) (bool, error)
	promptInit func(files []config.SampleFile) ([]config.SampleFile, bool, bool, error)
}

func newApp() *app {
	return &app{
		confirm:    config.Confirm,
		promptInit: config.PromptForInit,
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	return newApp().rootCommand(version)
}

func (a *app) rootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Manage reminders and notify webhooks when they change",
		Long: `reminders keeps reminder lists in a local database, serves them over HTTP,
and posts lifecycle events to webhook subscriptions whose filter matches.

Filters use a small expression language, for example:
  list = Work AND priority IN (high, medium)
  overdue OR dueDate = today`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default <config dir>/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("db", "", "reminders database file")
	pf.String("webhooks-file", "", "webhook subscriptions file")
	pf.BoolVar(&a.jsonOutput, "json", false, "print JSON instead of text")

	cmd.AddCommand(
		a.serveCommand(),
		a.initCommand(),
		a.doctorCommand(),
		a.listsCommand(),
		a.showCommand(),
		a.addCommand(),
		a.editCommand(),
		a.completeCommand(true),
		a.completeCommand(false),
		a.deleteCommand(),
		a.searchCommand(),
		a.webhooksCommand(),
	)
	return cmd
}

// Execute runs the command line and reports errors on stderr.
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

type sessionFunc func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error

// withSession bootstraps the store, filters and webhooks for a command and
// releases them when it returns.
func (a *app) withSession(fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := bootstrap.Bootstrap(cmd.Flags())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.Close(); cerr != nil {
				slog.Warn("shutdown incomplete", "error", cerr)
				if err == nil {
					err = cerr
				}
			}
		}()
		return fn(cmd, args, s)
	}
}
