// Package mailsanitizer is the library entry point: given a raw RFC
// 5322 / MIME email, Sanitize walks every attachment through the
// classification pipeline in inspect and reassembles a sanitized
// replacement via mailmsg. It plays the role go-guerrilla's Daemon
// facade (api.go) plays for that project: a single struct wiring
// together config, logger and the pipeline itself, with a package-level
// convenience function for callers that don't need to keep the struct
// around.
package mailsanitizer

import (
	"fmt"
	"sync"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/mailchannels/mailsanitizer/inspect"
	"github.com/mailchannels/mailsanitizer/logging"
	"github.com/mailchannels/mailsanitizer/mailmsg"
	"github.com/mailchannels/mailsanitizer/metrics"
	"github.com/mailchannels/mailsanitizer/sanitizerconfig"
)

// Sanitizer is the facade: Config, Logger and Metrics, wired into one
// Sanitize entry point. The zero value is not usable; build one with
// New.
type Sanitizer struct {
	Config  sanitizerconfig.Config
	Logger  logging.Logger
	Metrics *metrics.Metrics

	mu            sync.Mutex
	processingLog []string
}

// New builds a Sanitizer from cfg, filling in any zero-valued fields via
// Config.ConfigureDefaults and opening the configured logger.
func New(cfg sanitizerconfig.Config) (*Sanitizer, error) {
	if err := cfg.ConfigureDefaults(); err != nil {
		return nil, fmt.Errorf("mailsanitizer: %w", err)
	}
	logger, err := logging.GetLogger(cfg.LogFile)
	if err != nil {
		// GetLogger already fell back to stderr; surface the error via
		// that logger rather than failing construction outright.
		logger.WithError(err).Warn("falling back to stderr logging")
	}
	if cfg.Debug {
		logger.SetLevel("debug")
	}
	return &Sanitizer{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}, nil
}

// Sanitize implements spec.md §6's entry point:
// sanitize(raw_email_bytes, max_recursive, debug) -> sanitized_email_bytes.
// No inspector error escapes this call: dispatch failures are converted
// to a dangerous descriptor at the dispatcher boundary, and malformed
// top-level MIME envelopes are returned as a wrapped error.
func Sanitize(raw []byte, maxRecursive int, debug bool) ([]byte, error) {
	cfg := sanitizerconfig.Config{MaxRecursive: maxRecursive, Debug: debug}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Sanitize(raw)
}

// Sanitize runs one message through the pipeline: split, dispatch every
// attachment, reassemble. The recursion frame (inspect.State) is created
// fresh per call and threaded through every nested message/archive
// descent triggered by this invocation; it is never shared across
// concurrent Sanitize calls.
func (s *Sanitizer) Sanitize(raw []byte) ([]byte, error) {
	st := &inspect.State{}
	out, err := s.processMail(raw, st)
	if err != nil {
		return nil, err
	}
	s.Metrics.IncMessage()
	return out, nil
}

// ProcessingLog returns the "Processing <file> (<main>/<sub>)"-style
// lines accumulated across every Sanitize call on this Sanitizer, the
// way the original KittenGroomerMailBase kept a running StringIO of the
// same information (original_source/kittengroomer_email).
func (s *Sanitizer) ProcessingLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.processingLog))
	copy(out, s.processingLog)
	return out
}

func (s *Sanitizer) processMail(raw []byte, st *inspect.State) ([]byte, error) {
	msg, err := mailmsg.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("mailsanitizer: %w", err)
	}

	disp := inspect.NewDispatcher(s.Config.MaxRecursive, s.nestedMailProcessor(), s.Logger)

	var final []*attachment.Descriptor
	for _, a := range msg.Attachments {
		results := disp.Dispatch(a, st)
		final = append(final, results...)
		for _, r := range results {
			s.logProcessed(r)
			s.Metrics.IncAttachment(r.State.String(), len(r.Bytes))
			if r.LogDetails["recursive archive"] == true {
				s.Metrics.IncArchiveBomb()
			}
			if r.LogDetails["too_many_recursive_mails"] == true {
				s.Metrics.IncRecursionLimit()
			}
		}
	}

	return mailmsg.Reassemble(msg, final)
}

func (s *Sanitizer) nestedMailProcessor() inspect.ProcessNestedMail {
	return func(raw []byte, st *inspect.State) ([]byte, error) {
		return s.processMail(raw, st)
	}
}

func (s *Sanitizer) logProcessed(d *attachment.Descriptor) {
	line := fmt.Sprintf("Processing %s (%s)", d.OrigFilename, d.MIMEType.String())
	s.mu.Lock()
	s.processingLog = append(s.processingLog, line)
	s.mu.Unlock()
	s.Logger.Info(line)
}
