package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/internal/bootstrap"
	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

func (a *app) webhooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook", "hooks"},
		Short:   "Manage webhook subscriptions",
	}
	cmd.AddCommand(
		a.webhooksListCommand(),
		a.webhooksAddCommand(),
		a.webhooksUpdateCommand(),
		a.webhooksRemoveCommand(),
		a.webhooksTestCommand(),
	)
	return cmd
}

func describeFilter(f *filter.Filter) string {
	if f.IsEmpty() {
		return "*"
	}
	return f.String()
}

func (a *app) webhooksListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show webhook subscriptions",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, _ []string, s *bootstrap.BootstrapResult) error {
			subs := s.Registry.List()
			if a.jsonOutput {
				if subs == nil {
					subs = []webhook.Subscription{}
				}
				return printJSON(cmd, subs)
			}
			tw := newTable(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(tw, "ID\tACTIVE\tNAME\tURL\tFILTER")
			for _, sub := range subs {
				_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", sub.ID, sub.Active, sub.Name, sub.URL, describeFilter(sub.Filter))
			}
			return tw.Flush()
		}),
	}
}

// filterFlags collects either an expression or the legacy list/completion
// selectors.
type filterFlags struct {
	expr      string
	lists     []string
	completed string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.expr, "filter", "", "filter expression, e.g. \"list = Work AND NOT complete\"")
	cmd.Flags().StringSliceVar(&ff.lists, "lists", nil, "legacy filter: only these lists")
	cmd.Flags().StringVar(&ff.completed, "completed", "", "legacy filter: all, true or false")
}

func (ff *filterFlags) changed(cmd *cobra.Command) bool {
	f := cmd.Flags()
	return f.Changed("filter") || f.Changed("lists") || f.Changed("completed")
}

func (ff *filterFlags) build(cmd *cobra.Command, shortcuts *filter.Shortcuts) (*filter.Filter, error) {
	f := cmd.Flags()
	legacy := f.Changed("lists") || f.Changed("completed")
	if legacy && f.Changed("filter") {
		return nil, errors.New("--filter cannot be combined with --lists or --completed")
	}
	if legacy {
		return webhook.LegacyFilter{ListNames: ff.lists, Completed: ff.completed}.Filter()
	}
	parsed, err := filter.ParseFilterWith(ff.expr, shortcuts)
	if err != nil {
		return nil, err
	}
	warnUnknownFields(cmd, parsed)
	return parsed, nil
}

func (a *app) webhooksAddCommand() *cobra.Command {
	var (
		name string
		ff   filterFlags
	)
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Subscribe a URL to reminder events",
		Example: `  reminders webhooks add https://example.com/hook --filter "list = Work AND high_priority"
  reminders webhooks add http://localhost:9000/in --lists Work,Home --completed false`,
		Args: cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			f, err := ff.build(cmd, s.Shortcuts)
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
			sub, err := s.Registry.Add(args[0], f, name)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, sub)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added webhook %s -> %s (filter: %s)\n", sub.ID, sub.URL, describeFilter(sub.Filter))
			return err
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	ff.register(cmd)
	return cmd
}

func (a *app) webhooksUpdateCommand() *cobra.Command {
	var (
		url, name   string
		active      bool
		clearFilter bool
		ff          filterFlags
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a webhook subscription",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			flags := cmd.Flags()
			var u webhook.Update
			if flags.Changed("url") {
				u.URL = &url
			}
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("active") {
				u.Active = &active
			}
			switch {
			case clearFilter && ff.changed(cmd):
				return errors.New("--clear-filter cannot be combined with a new filter")
			case clearFilter:
				u.Filter = &filter.Filter{}
			case ff.changed(cmd):
				f, err := ff.build(cmd, s.Shortcuts)
				if err != nil {
					return fmt.Errorf("invalid filter: %w", err)
				}
				u.Filter = f
			}

			ok, err := s.Registry.Update(args[0], u)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("webhook %s not found", args[0])
			}
			sub, _ := s.Registry.Get(args[0])
			if a.jsonOutput {
				return printJSON(cmd, sub)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated webhook %s\n", sub.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&url, "url", "", "new delivery URL")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().BoolVar(&active, "active", true, "enable or disable deliveries (--active=false)")
	cmd.Flags().BoolVar(&clearFilter, "clear-filter", false, "match every reminder")
	ff.register(cmd)
	return cmd
}

func (a *app) webhooksRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a webhook subscription",
		Args:    cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			sub, ok := s.Registry.Get(args[0])
			if !ok {
				return fmt.Errorf("webhook %s not found", args[0])
			}
			if !yes {
				label := sub.URL
				if sub.Name != "" {
					label = sub.Name + " (" + sub.URL + ")"
				}
				confirmed, err := a.confirm("Remove webhook " + label + "?")
				if err != nil {
					return err
				}
				if !confirmed {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return err
				}
			}
			if _, err := s.Registry.Remove(sub.ID); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %s\n", sub.ID)
			return err
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (a *app) webhooksTestCommand() *cobra.Command {
	var reminderID string
	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Send a test event to a webhook",
		Long: `Send a test event to a webhook and report the result. The subscription's
filter and active flag are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			sub, ok := s.Registry.Get(args[0])
			if !ok {
				return fmt.Errorf("webhook %s not found", args[0])
			}
			var sample *task.Task
			if strings.TrimSpace(reminderID) != "" {
				t, err := s.Store.GetTask(cmd.Context(), reminderID)
				if err != nil {
					return err
				}
				sample = t
			}
			if err := s.Dispatcher.SendTest(cmd.Context(), sub, sample); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Delivered test event to %s\n", sub.URL)
			return err
		}),
	}
	cmd.Flags().StringVar(&reminderID, "reminder", "", "send this reminder instead of a sample")
	return cmd
}
