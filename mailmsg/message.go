// Package mailmsg parses a raw RFC 5322 / MIME email into a kept-body
// set plus an attachment set (the Splitter, spec.md §4.5), and
// reassembles a sanitized replacement message from the original kept
// parts, a processing note and the dispositioned attachments (the
// Reassembler). It is the one package in this module that both touches
// raw mail bytes and drives the attachment pipeline, mirroring how
// go-guerrilla's mail.Envelope sits between the wire format and the
// processor backends that act on it.
package mailmsg

import (
	"net/textproto"

	"github.com/mailchannels/mailsanitizer/attachment"
)

// KeptPart is an inline body part with no filename: the message text the
// recipient reads directly, as opposed to an attachment under analysis.
type KeptPart struct {
	Header textproto.MIMEHeader
	Body   []byte
}

func (p KeptPart) contentType() string {
	return p.Header.Get("Content-Type")
}

// Message is the result of Split: the original header (Message-ID
// replaced on Reassemble), the preserved inline body, and the
// attachments awaiting dispatch.
type Message struct {
	Header            textproto.MIMEHeader
	OriginalMessageID string
	KeptParts         []KeptPart
	Attachments       []*attachment.Descriptor

	// WasMultipart records whether the original top-level Content-Type was
	// multipart/*; false means the single payload was treated as one kept
	// part per spec.md §3's Parsed Message definition.
	WasMultipart bool
}
