package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/config"
	"github.com/cromulus/reminders-cli-sub001/internal/bootstrap"
	"github.com/cromulus/reminders-cli-sub001/util/sysinfo"
)

func (a *app) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report environment, paths and configuration health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := sysinfo.NewSystemInfo()
			checks := map[string]string{}
			failed := 0
			check := func(name string, err error) {
				if err != nil {
					checks[name] = err.Error()
					failed++
					return
				}
				checks[name] = "ok"
			}

			s, err := bootstrap.Bootstrap(cmd.Flags())
			check("configuration", err)
			subscriptions := 0
			var settings map[string]string
			if err == nil {
				settings = config.Settings()
				defer func() { _ = s.Close() }()
				_, err := s.Store.Lists(cmd.Context())
				check("database", err)
				subscriptions = len(s.Registry.List())
				if _, err := os.Stat(s.Cfg.Webhooks.File); err != nil && !os.IsNotExist(err) {
					check("webhooks file", err)
				} else {
					check("webhooks file", nil)
				}
			}

			if a.jsonOutput {
				report := info.ToMap()
				report["checks"] = checks
				report["subscriptions"] = subscriptions
				report["config_file"] = config.FileUsed()
				report["settings"] = settings
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprint(out, info.String())
				if settings != nil {
					file := config.FileUsed()
					if file == "" {
						file = "(defaults)"
					}
					_, _ = fmt.Fprint(out, "\nConfiguration\n-------------\n")
					_, _ = fmt.Fprintf(out, "%-22s %s\n", "file", file)
					for _, key := range slices.Sorted(maps.Keys(settings)) {
						_, _ = fmt.Fprintf(out, "%-22s %s\n", key, settings[key])
					}
				}
				_, _ = fmt.Fprint(out, "\nChecks\n------\n")
				for _, name := range []string{"configuration", "database", "webhooks file"} {
					result, ok := checks[name]
					if !ok {
						continue
					}
					mark := "✓"
					if result != "ok" {
						mark = "✗"
					}
					_, _ = fmt.Fprintf(out, "%s %-14s %s\n", mark, name, result)
				}
				_, _ = fmt.Fprintf(out, "  subscriptions  %d\n", subscriptions)
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
