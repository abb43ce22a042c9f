package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mailchannels/mailsanitizer"
	"github.com/mailchannels/mailsanitizer/relay"
	"github.com/mailchannels/mailsanitizer/sanitizerconfig"
)

var (
	sourceDir      string
	destDir        string
	maxRecursive   int
	debugSanitize  bool
	relayURL       string
	relayFrom      string
	relayRecipient string
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Sanitize every message under a source directory",
	Long: `sanitize walks --source, calls Sanitize on each file's bytes, and writes
the sanitized replacement to the mirrored path under --destination. A file
that fails to parse as a message is logged and skipped; sanitize only exits
non-zero for argument errors.`,
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().StringVarP(&sourceDir, "source", "s", "", "Source directory of raw messages (required)")
	sanitizeCmd.Flags().StringVarP(&destDir, "destination", "d", "", "Destination directory for sanitized messages (required)")
	sanitizeCmd.Flags().IntVar(&maxRecursive, "max-recursive", 2, "Maximum nested message/* depth")
	sanitizeCmd.Flags().BoolVar(&debugSanitize, "debug", false, "Verbose per-attachment logging")
	sanitizeCmd.Flags().StringVar(&relayURL, "relay", "", "Optional SMTP relay URL to forward sanitized messages to")
	sanitizeCmd.Flags().StringVar(&relayFrom, "relay-from", "", "Envelope sender used when --relay is set")
	sanitizeCmd.Flags().StringVar(&relayRecipient, "relay-to", "", "Envelope recipient used when --relay is set")
	_ = sanitizeCmd.MarkFlagRequired("source")
	_ = sanitizeCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	if sourceDir == "" || destDir == "" {
		return fmt.Errorf("both --source and --destination are required")
	}

	cfg := sanitizerconfig.Config{MaxRecursive: maxRecursive, Debug: debugSanitize, LogFile: logFile}
	if configPath != "" {
		loaded, err := sanitizerconfig.Load(configPath)
		if err != nil {
			return err
		}
		// Flags set on the command line win over the environment and the file.
		if cmd.Flags().Changed("max-recursive") {
			loaded.MaxRecursive = maxRecursive
		}
		if cmd.Flags().Changed("debug") {
			loaded.Debug = debugSanitize
		}
		if cmd.Flags().Changed("log-file") {
			loaded.LogFile = logFile
		}
		cfg = loaded
	}
	if relayURL == "" {
		relayURL = cfg.RelayAddr
	}

	s, err := mailsanitizer.New(cfg)
	if err != nil {
		return fmt.Errorf("mailsanitized: %w", err)
	}

	var r *relay.Relay
	if relayURL != "" {
		r, err = relay.New(relayURL)
		if err != nil {
			return fmt.Errorf("mailsanitized: %w", err)
		}
	}

	return filepath.WalkDir(sourceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == sourceDir {
				return err
			}
			s.Logger.WithError(err).Warnf("skipping %s: could not read", path)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return sanitizeOne(s, r, path)
	})
}

func sanitizeOne(s *mailsanitizer.Sanitizer, r *relay.Relay, path string) error {
	rel, err := filepath.Rel(sourceDir, path)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		s.Logger.WithError(err).Warnf("skipping %s: could not read", path)
		return nil
	}

	out, err := s.Sanitize(raw)
	if err != nil {
		s.Logger.WithError(err).Warnf("skipping %s: could not sanitize", path)
		return nil
	}

	destPath := filepath.Join(destDir, rel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		s.Logger.WithError(err).Warnf("skipping %s: could not create destination directory", path)
		return nil
	}
	if err := os.WriteFile(destPath, out, 0644); err != nil {
		s.Logger.WithError(err).Warnf("skipping %s: could not write %s", path, destPath)
		return nil
	}

	if r != nil {
		if err := r.Send(relayFrom, []string{relayRecipient}, out); err != nil {
			s.Logger.WithError(err).Warnf("failed to relay %s", path)
		}
	}
	return nil
}
