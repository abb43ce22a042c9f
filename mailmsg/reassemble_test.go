package mailmsg

import (
	"net/textproto"
	"strings"
	"testing"

	"github.com/mailchannels/mailsanitizer/attachment"
)

func TestReassembleKeepsHeadersAndAddsNoteAndPayload(t *testing.T) {
	header := textproto.MIMEHeader{}
	header.Set("From", "alice@example.com")
	header.Set("To", "bob@example.com")
	header.Set("Subject", "hi")

	msg := &Message{
		Header:            header,
		OriginalMessageID: "<orig@example.com>",
		KeptParts: []KeptPart{
			{Header: textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}}, Body: []byte("body text")},
		},
	}

	d := attachment.New([]byte("payload"), "file.bin")
	d.MIMEType = attachment.MIMEType{Main: "application", Sub: "octet-stream"}
	d.MakeBinary()

	out, err := Reassemble(msg, []*attachment.Descriptor{d})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "Subject: hi") {
		t.Errorf("expected original header to survive, got:\n%s", s)
	}
	if !strings.Contains(s, "Content-Type: multipart/mixed") {
		t.Errorf("expected multipart/mixed top-level content type, got:\n%s", s)
	}
	if !strings.Contains(s, "Sanitized.txt") {
		t.Errorf("expected a Sanitized.txt note part, got:\n%s", s)
	}
	if !strings.Contains(s, "<orig@example.com>") {
		t.Errorf("expected the original Message-ID to be referenced in the note, got:\n%s", s)
	}
	if strings.Count(s, "Message-Id:") != 1 {
		t.Errorf("expected exactly one fresh Message-Id header, got:\n%s", s)
	}
	// MakeBinary turned "file.bin" into "file.bin.bin"; Reassemble must use
	// that FinalFilename as-is and not append another suffix.
	if !strings.Contains(s, `filename="file.bin.bin"`) || strings.Contains(s, "file.bin.bin.bin") {
		t.Errorf("expected FinalFilename (with .bin suffix already applied) to be used as-is, got:\n%s", s)
	}
}

func TestReassembleEmptyBodyGetsPlaceholder(t *testing.T) {
	msg := &Message{Header: textproto.MIMEHeader{}}
	out, err := Reassemble(msg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "Empty Message") {
		t.Errorf("expected placeholder body for a message with no kept parts, got:\n%s", out)
	}
}

func TestReassembleDropsStructuralHeaders(t *testing.T) {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "text/plain")
	header.Set("Message-Id", "<old@example.com>")
	header.Set("Mime-Version", "1.0")
	msg := &Message{Header: header}

	out, err := Reassemble(msg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "<old@example.com>") {
		t.Errorf("expected the original Message-Id to be dropped, got:\n%s", s)
	}
	if strings.Count(s, "Mime-Version:") != 1 {
		t.Errorf("expected exactly one Mime-Version header, got:\n%s", s)
	}
}

func TestEncodeLogDetailsIsSortedAndDeterministic(t *testing.T) {
	details := map[string]interface{}{"zeta": true, "alpha": "x", "macro": true}
	first := encodeLogDetails(details)
	second := encodeLogDetails(details)
	if string(first) != string(second) {
		t.Fatalf("expected deterministic encoding across calls")
	}
	if strings.Index(string(first), "alpha") > strings.Index(string(first), "zeta") {
		t.Errorf("expected keys sorted alphabetically, got:\n%s", first)
	}
}
