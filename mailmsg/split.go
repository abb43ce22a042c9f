package mailmsg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"

	"github.com/mailchannels/mailsanitizer/inspect"
)

var wordDecoder = new(mime.WordDecoder)

// Split parses raw as an email message and partitions its direct parts
// into kept_parts (no filename) and attachments (leaf parts carrying a
// filename, per spec.md §4.5). A non-multipart message is returned as a
// single kept part.
func Split(raw []byte) (*Message, error) {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mailmsg: parsing message: %w", err)
	}

	header := textproto.MIMEHeader(m.Header)
	msg := &Message{
		Header:            header,
		OriginalMessageID: header.Get("Message-Id"),
	}

	body, err := io.ReadAll(m.Body)
	if err != nil {
		return nil, fmt.Errorf("mailmsg: reading body: %w", err)
	}

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || !isMultipart(mediaType) {
		decoded, decErr := decodeBody(header, body)
		if decErr != nil {
			decoded = body
		}
		msg.KeptParts = []KeptPart{{Header: topLevelBodyHeader(header), Body: decoded}}
		return msg, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		msg.KeptParts = []KeptPart{{Header: topLevelBodyHeader(header), Body: body}}
		return msg, nil
	}

	msg.WasMultipart = true
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mailmsg: reading multipart body: %w", err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("mailmsg: reading part body: %w", err)
		}
		partHeader := textproto.MIMEHeader(part.Header)
		decoded, decErr := decodeBody(partHeader, data)
		if decErr != nil {
			decoded = data
		}

		if filename := partFilename(partHeader); filename != "" {
			msg.Attachments = append(msg.Attachments, inspect.NewDescriptor(decoded, filename))
			continue
		}
		msg.KeptParts = append(msg.KeptParts, KeptPart{Header: partHeader, Body: decoded})
	}

	return msg, nil
}

func isMultipart(mediaType string) bool {
	return len(mediaType) >= len("multipart/") && mediaType[:len("multipart/")] == "multipart/"
}

// topLevelBodyHeader builds the header a single-payload message's sole
// kept part carries: the Content-Type of the message's own top-level
// header (text/plain when absent). Content-Transfer-Encoding is not copied.
func topLevelBodyHeader(header textproto.MIMEHeader) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	if ct := header.Get("Content-Type"); ct != "" {
		h.Set("Content-Type", ct)
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	return h
}

// partFilename extracts and RFC 2047-decodes the filename a part
// declares, checking Content-Disposition first and falling back to
// Content-Type's "name" parameter the way Python's email.message.Message
// .get_filename() does for mailers that never adopted Content-Disposition.
func partFilename(header textproto.MIMEHeader) string {
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return decodeWords(name)
			}
		}
	}
	if ct := header.Get("Content-Type"); ct != "" {
		if _, params, err := mime.ParseMediaType(ct); err == nil {
			if name := params["name"]; name != "" {
				return decodeWords(name)
			}
		}
	}
	return ""
}

func decodeWords(s string) string {
	if decoded, err := wordDecoder.DecodeHeader(s); err == nil {
		return decoded
	}
	return s
}

// decodeBody reverses Content-Transfer-Encoding so every KeptPart and
// attachment Descriptor downstream carries plain bytes.
func decodeBody(header textproto.MIMEHeader, data []byte) ([]byte, error) {
	switch header.Get("Content-Transfer-Encoding") {
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(data)))
	case "base64":
		return decodeBase64Loose(data)
	default:
		return data, nil
	}
}

// decodeBase64Loose decodes base64 payloads that may be wrapped across
// lines, as attachment bodies typically are.
func decodeBase64Loose(data []byte) ([]byte, error) {
	return io.ReadAll(base64.NewDecoder(base64.StdEncoding, bytes.NewReader(stripWhitespace(data))))
}

func stripWhitespace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			out = append(out, b)
		}
	}
	return out
}
