// Package cli wires the bot's cobra command tree.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/config"
)

var (
	cfgFile string
	verbose bool
)

// NewRootCommand builds the outage-bot command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "outage-bot",
		Short: "Monitors third-party platform status feeds and tracks outages",
		Long: `outage-bot polls the status feeds of the platforms the team depends on,
deduplicates incidents into tracked events with stable internal ids, notifies
operators, and serves Slack slash commands for manual control.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")

	root.AddCommand(newRunCommand())
	root.AddCommand(newCheckCommand())
	root.AddCommand(newEventsCommand())
	return root
}

// loadConfig reads the YAML file (if any) and applies OUTAGEBOT_* env
// overrides for the settings operators most often inject at deploy time.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("OUTAGEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dsn := v.GetString("storage_dsn"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if token := v.GetString("slack_bot_token"); token != "" {
		cfg.Slack.BotToken = token
	}
	if pat := v.GetString("ado_pat_base64"); pat != "" {
		cfg.ADO.PATBase64 = pat
	}
	if secret := v.GetString("o365_client_secret"); secret != "" {
		cfg.Sources.O365ClientSecret = secret
	}
	if token := v.GetString("azure_token"); token != "" {
		cfg.Sources.AzureToken = token
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
