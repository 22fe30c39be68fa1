package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ligun0805/multisend/internal/config"
)

var (
	settings config.Settings
	log      *logrus.Entry

	rpcURL      string
	assetsFile  string
	journalPath string
	logLevel    string
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "multisend",
		Short:         "Send a native coin or ERC-20 token to many recipients in one transaction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings = config.Load()
			if rpcURL != "" {
				settings.RPCURL = rpcURL
			}
			if assetsFile != "" {
				settings.AssetsFile = assetsFile
			}
			if journalPath != "" {
				settings.JournalPath = journalPath
			}
			if logLevel != "" {
				settings.LogLevel = logLevel
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			lvl, err := logrus.ParseLevel(strings.ToLower(settings.LogLevel))
			if err != nil {
				return fmt.Errorf("log level %q: %w", settings.LogLevel, err)
			}
			logger.SetLevel(lvl)
			log = logrus.NewEntry(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rpcURL, "rpc", "", "JSON-RPC endpoint (default $RPC_URL)")
	root.PersistentFlags().StringVar(&assetsFile, "assets-file", "", "YAML asset registry (default $ASSETS_FILE or built-in list)")
	root.PersistentFlags().StringVar(&journalPath, "journal", "", "SQLite journal path (default $JOURNAL_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "panic|fatal|error|warn|info|debug|trace")

	root.AddCommand(sendCmd(), planCmd(), assetsCmd(), resolveCmd(), attemptsCmd())
	return root
}

// Execute runs the CLI and prints any failure in user-facing form.
func Execute() error {
	root := newRoot()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
	}
	return err
}
