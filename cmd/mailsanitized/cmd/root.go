// Package cmd implements the mailsanitized CLI, in the same shape as
// mobilecombackup's cmd package: a root command holding persistent flags,
// sub-commands registered in their own init().
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailchannels/mailsanitizer/logging"
)

var (
	version    string
	configPath string
	logFile    string
	mainlog    logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailsanitized",
	Short: "Sanitize email attachments",
	Long: `mailsanitized inspects every attachment of an RFC 5322 / MIME email,
classifies it by format-specific heuristics (macros, embedded objects, active
PDF content, executables, nested archives) and reassembles a sanitized
replacement message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion is called from main with the build-time version string.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.SetVersionTemplate("mailsanitized version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (YAML/JSON)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "stderr", "Log destination: stderr, stdout, off, or a file path")

	var logErr error
	if mainlog, logErr = logging.GetLogger(logging.OutputStderr.String()); logErr != nil {
		mainlog.WithError(logErr).Error("failed opening startup logger")
	}
}
