package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	coreconfig "github.com/notifun/wa-console/core/config"
	"github.com/notifun/wa-console/pkg/utils"
)

var (
	flagPort      string
	flagDebug     bool
	flagBasicAuth string
	flagFeedURL   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wa-console",
	Short: "Channel management console for WhatsApp channels",
	Long: `Console backend that mirrors the channel state of an upstream channel
management API. It keeps a live registry of channels reconciled from the
upstream event feed and serves it to UI clients over REST and websocket.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=4500",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagBasicAuth,
		"basic-auth", "b",
		"",
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagFeedURL,
		"feed-url", "",
		"",
		`event feed websocket url --feed-url <string> | example: --feed-url="ws://localhost:4600/events"`,
	)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[APP] Failed to load configuration: %v", err)
	}

	// Flags win over environment.
	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}
	if flagBasicAuth != "" {
		cfg.App.BasicAuth = append(cfg.App.BasicAuth, flagBasicAuth)
	}
	if flagFeedURL != "" {
		cfg.Feed.URL = flagFeedURL
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(cfg.Paths.Storages, 0o755); err != nil {
		logrus.Errorln("[APP] Failed to prepare storage folder:", err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
