package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the currently tracked (active) events",
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

			events, err := a.tracker.ListTrackedEvents(cmd.Context())
			if err != nil {
				return err
			}
			if len(events) == 0 {
				color.Green("no active events")
				return nil
			}

			for _, event := range events {
				fmt.Printf("%s  %-14s %-40s %s  first seen %s\n",
					color.YellowString(event.InternalID),
					event.Platform,
					event.EventName,
					event.Status,
					event.FirstSeen.Format(time.RFC3339),
				)
			}
			return nil
		},
	}
}
