package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check [source]",
		Short: "Run one check cycle for a source, or for all sources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if dryRun {
				a.checker.SetDryRun(true)
			}

			ctx := cmd.Context()
			if len(args) == 1 {
				name := strings.ToLower(args[0])
				if err := a.checker.Check(ctx, name); err != nil {
					color.Red("check %s: %v", name, err)
					return err
				}
				color.Green("check %s: ok", name)
			} else {
				a.checker.CheckAll(ctx)
				color.Green("checked %d sources", len(a.checker.Sources()))
			}

			events, err := a.tracker.ListTrackedEvents(ctx)
			if err != nil {
				return err
			}
			for _, event := range events {
				fmt.Printf("%s  %-14s %s\n",
					color.YellowString(event.InternalID), event.Platform, event.EventName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "use canned sample incidents instead of live feeds")
	return cmd
}
