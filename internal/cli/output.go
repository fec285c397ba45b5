package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/internal/render"
	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/util/sysinfo"
)

const notesWidth = 80

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// markdownRenderer picks a glamour style for the command's output.
func markdownRenderer(cmd *cobra.Command) render.MarkdownRenderer {
	out := cmd.OutOrStdout()
	theme := sysinfo.DetectTheme(os.Getenv("COLORFGBG"))
	return render.New(render.StyleFor(theme, isTerminal(out)), notesWidth)
}

func checkbox(t *task.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

func formatDue(t *task.Task) string {
	if t.DueDate == nil {
		return "-"
	}
	due := t.DueDate.Local()
	if due.Hour() == 0 && due.Minute() == 0 && due.Second() == 0 {
		return due.Format(time.DateOnly)
	}
	return due.Format("2006-01-02 15:04")
}

func formatPriority(t *task.Task) string {
	if t.Priority == 0 {
		return "-"
	}
	return string(t.Bucket())
}

// writeTasks prints one row per reminder.
func writeTasks(w io.Writer, tasks []*task.Task, withList bool) error {
	tw := newTable(w)
	for _, t := range tasks {
		cols := []string{checkbox(t), t.Title, formatDue(t), formatPriority(t)}
		if withList {
			cols = append(cols, t.ListName)
		}
		cols = append(cols, t.ID)
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func nonNilTasks(tasks []*task.Task) []*task.Task {
	if tasks == nil {
		return []*task.Task{}
	}
	return tasks
}

// warnUnknownFields tells the user about conditions that can never match.
func warnUnknownFields(cmd *cobra.Command, f *filter.Filter) {
	for _, field := range f.UnknownFields() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unknown field %q never matches\n", field)
	}
}
