package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/internal/bootstrap"
	"github.com/cromulus/reminders-cli-sub001/search"
	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
)

func (a *app) listsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show reminder lists",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, _ []string, s *bootstrap.BootstrapResult) error {
			lists, err := s.Store.Lists(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if lists == nil {
					lists = []task.List{}
				}
				return printJSON(cmd, lists)
			}
			tw := newTable(cmd.OutOrStdout())
			for _, l := range lists {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", l.Title, l.ID)
			}
			return tw.Flush()
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <title>",
		Short: "Create a reminder list",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			list, err := s.Store.CreateList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, list)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created list %s (%s)\n", list.Title, list.ID)
			return err
		}),
	})
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var completed bool
	cmd := &cobra.Command{
		Use:   "show <list>",
		Short: "Show the reminders of a list",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			ctx := cmd.Context()
			list, err := s.Store.FindList(ctx, args[0])
			if err != nil {
				return err
			}
			tasks, err := store.TasksInList(ctx, s.Store, list.ID, completed)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, nonNilTasks(tasks))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n", list.Title)
			if len(tasks) == 0 {
				_, err := fmt.Fprintln(out, "  (no reminders)")
				return err
			}
			md := markdownRenderer(cmd)
			for _, t := range tasks {
				_, _ = fmt.Fprintf(out, "%s %s", checkbox(t), t.Title)
				if t.DueDate != nil {
					_, _ = fmt.Fprintf(out, "  due %s", formatDue(t))
				}
				if t.Priority != 0 {
					_, _ = fmt.Fprintf(out, "  %s", formatPriority(t))
				}
				_, _ = fmt.Fprintf(out, "  (%s)\n", t.ID)
				if strings.TrimSpace(t.Notes) == "" {
					continue
				}
				notes, err := md.Render(t.Notes)
				if err != nil {
					notes = t.Notes
				}
				_, _ = fmt.Fprintln(out, indent(notes, "    "))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "include completed reminders")
	return cmd
}

// resolveDue turns a keyword, ISO date or natural-language phrase into a
// due date.
func resolveDue(env filter.Env, value string) (time.Time, error) {
	due, ok := env.ResolveDate(value)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized due date %q", value)
	}
	return due, nil
}

func parsePriority(value string) (int, error) {
	raw, ok := task.ParsePriority(value)
	if !ok {
		return 0, fmt.Errorf("invalid priority %q: want none, low, medium, high or 0-9", value)
	}
	return raw, nil
}

func (a *app) addCommand() *cobra.Command {
	var notes, due, priority string
	cmd := &cobra.Command{
		Use:   "add <list> <title>...",
		Short: "Add a reminder to a list",
		Example: `  reminders add Groceries Buy milk --due tomorrow --priority high
  reminders add Work "Send report" --due "next friday" --notes "- numbers\n- charts"`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			t := &task.Task{
				ListName: args[0],
				Title:    strings.Join(args[1:], " "),
				Notes:    notes,
			}
			if due != "" {
				d, err := resolveDue(s.Env(), due)
				if err != nil {
					return err
				}
				t.DueDate = &d
			}
			raw, err := parsePriority(priority)
			if err != nil {
				return err
			}
			t.Priority = raw

			created, err := s.Store.CreateTask(cmd.Context(), t)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, created)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s (%s)\n", created.Title, created.ListName, created.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "due date: today, tomorrow+2, 2026-05-01, \"next friday\"...")
	cmd.Flags().StringVar(&priority, "priority", "", "priority: none, low, medium, high or 0-9")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var (
		title, notes, due, priority string
		clearDue                    bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			flags := cmd.Flags()
			var patch task.Patch
			if flags.Changed("title") {
				if strings.TrimSpace(title) == "" {
					return errors.New("title must not be empty")
				}
				patch.Title = &title
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("due") && clearDue {
				return errors.New("--due and --clear-due are mutually exclusive")
			}
			if flags.Changed("due") {
				d, err := resolveDue(s.Env(), due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			patch.ClearDueDate = clearDue
			if flags.Changed("priority") {
				raw, err := parsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &raw
			}
			if patch.Empty() {
				return errors.New("nothing to change: pass --title, --notes, --due, --clear-due or --priority")
			}

			updated, err := s.Store.UpdateTask(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, updated)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", updated.Title)
			return err
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	return cmd
}

func (a *app) completeCommand(completed bool) *cobra.Command {
	use, short, verb := "complete <id>", "Mark a reminder completed", "Completed"
	if !completed {
		use, short, verb = "uncomplete <id>", "Mark a reminder not completed", "Reopened"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			t, err := s.Store.SetCompleted(cmd.Context(), args[0], completed)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, t)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", verb, t.Title)
			return err
		}),
	}
}

func (a *app) deleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			ctx := cmd.Context()
			t, err := s.Store.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Delete %q from %s?", t.Title, t.ListName))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return err
				}
			}
			if err := s.Store.DeleteTask(ctx, t.ID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Title)
			return err
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (a *app) searchCommand() *cobra.Command {
	var opts search.Options
	cmd := &cobra.Command{
		Use:   "search [filter]",
		Short: "Find reminders matching a filter expression",
		Long: `Find reminders across all lists. Without a filter every reminder matches.

Fields: title, notes, list, priority, completed, dueDate, hasDueDate, hasNotes.
Shortcuts such as overdue, due_today or high_priority expand to expressions.`,
		Example: `  reminders search "overdue AND list = Work" --sort-by dueDate
  reminders search "title CONTAINS milk OR notes CONTAINS milk" --limit 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, s *bootstrap.BootstrapResult) error {
			expr := ""
			if len(args) == 1 {
				expr = args[0]
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			f, err := filter.ParseFilterWith(expr, s.Shortcuts)
			if err != nil {
				return err
			}
			warnUnknownFields(cmd, f)
			tasks, err := s.Store.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			results, err := search.Run(tasks, f, opts, s.Env())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd, nonNilTasks(results))
			}
			return writeTasks(cmd.OutOrStdout(), results, true)
		}),
	}
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "sort key: title, dueDate, priority, list, created, modified")
	cmd.Flags().StringVar(&opts.SortOrder, "order", "asc", "sort order: asc or desc")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 for all)")
	return cmd
}
