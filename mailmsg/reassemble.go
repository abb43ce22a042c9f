package mailmsg

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/microcosm-cc/bluemonday"
)

const sanitizedNoteName = "Sanitized.txt"

// droppedHeaders are the original headers that described the original
// MIME *structure* (Content-Type, Content-Transfer-Encoding, Mime-Version,
// Message-Id); they are replaced, since the structure itself changed.
// Every other header is copied verbatim onto the reassembled message.
var droppedHeaders = map[string]bool{
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Mime-Version":              true,
	"Message-Id":                true,
}

var bodyHTMLPolicy = bluemonday.StrictPolicy()

// Reassemble produces a new message shell derived from msg: a fresh
// Message-ID, the preserved kept body, a Sanitized.txt note recording
// the original Message-ID, and for every descriptor in final (the
// dispatcher's output, including archive-expanded children, in
// traversal order) a `.log` report sibling plus the renamed payload.
func Reassemble(msg *Message, final []*attachment.Descriptor) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := writeKeptParts(w, msg.KeptParts); err != nil {
		return nil, fmt.Errorf("mailmsg: writing kept parts: %w", err)
	}
	if err := writeSanitizedNote(w, msg.OriginalMessageID); err != nil {
		return nil, fmt.Errorf("mailmsg: writing sanitized note: %w", err)
	}
	for _, d := range final {
		if err := writeAttachmentReport(w, d); err != nil {
			return nil, fmt.Errorf("mailmsg: writing report for %s: %w", d.OrigFilename, err)
		}
		if err := writeAttachmentPayload(w, d); err != nil {
			return nil, fmt.Errorf("mailmsg: writing payload for %s: %w", d.OrigFilename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mailmsg: closing multipart writer: %w", err)
	}

	var out bytes.Buffer
	writeHeader(&out, msg.Header, w.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeHeader(out *bytes.Buffer, original textproto.MIMEHeader, boundary string) {
	for key, values := range original {
		if droppedHeaders[textproto.CanonicalMIMEHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			fmt.Fprintf(out, "%s: %s\r\n", key, v)
		}
	}
	fmt.Fprintf(out, "Message-Id: %s\r\n", newMessageID())
	out.WriteString("Mime-Version: 1.0\r\n")
	fmt.Fprintf(out, "Content-Type: multipart/mixed; boundary=%s\r\n", boundary)
	out.WriteString("\r\n")
}

func newMessageID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("<%s@mailsanitizer>", hex.EncodeToString(buf))
}

func writeKeptParts(w *multipart.Writer, kept []KeptPart) error {
	if len(kept) == 0 {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Content-Transfer-Encoding", "8bit")
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = part.Write([]byte("Empty Message"))
		return err
	}
	for _, kp := range kept {
		h := cloneHeader(kp.Header)
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "text/plain; charset=utf-8")
		}
		h.Set("Content-Transfer-Encoding", "8bit")

		body := kp.Body
		if strings.Contains(strings.ToLower(h.Get("Content-Type")), "text/html") {
			body = []byte(bodyHTMLPolicy.Sanitize(string(body)))
		}

		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func writeSanitizedNote(w *multipart.Writer, originalMessageID string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Transfer-Encoding", "8bit")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizedNoteName))

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	note := fmt.Sprintf("The attachments of this mail have been sanitized.\nOriginal Message-ID: %s", originalMessageID)
	_, err = part.Write([]byte(note))
	return err
}

func writeAttachmentReport(w *multipart.Writer, d *attachment.Descriptor) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Transfer-Encoding", "8bit")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.OrigFilename+".log"))

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(encodeLogDetails(d.LogDetails))
	return err
}

func writeAttachmentPayload(w *multipart.Writer, d *attachment.Descriptor) error {
	mt := d.MIMEType.String()
	if mt == "" {
		mt = "application/octet-stream"
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mt)
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.FinalFilename))

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(base64Wrapped(d.Bytes))
	return err
}

// base64Wrapped encodes data and wraps it at 76 columns, matching the
// line length RFC 2045 expects of base64 body content.
func base64Wrapped(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	var out bytes.Buffer
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		out.WriteString(encoded[i:end])
		out.WriteString("\r\n")
	}
	return out.Bytes()
}

func cloneHeader(h textproto.MIMEHeader) textproto.MIMEHeader {
	out := textproto.MIMEHeader{}
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// encodeLogDetails renders a Descriptor's diagnostics as deterministic,
// human-readable text: one "key: value" line per entry, keys sorted so
// the report is reproducible across runs.
func encodeLogDetails(details map[string]interface{}) []byte {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %v\n", k, details[k])
	}
	return buf.Bytes()
}
