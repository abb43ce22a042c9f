package cmd

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version info",
	Long:  `Every piece of software has a version. This is mailsanitizer's.`,
	Run: func(cmd *cobra.Command, args []string) {
		mainlog.WithField("version", version).Info("mailsanitized")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
