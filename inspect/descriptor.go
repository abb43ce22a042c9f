package inspect

import (
	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/mailchannels/mailsanitizer/probe"
)

// NewDescriptor builds a Descriptor for data declared under filename,
// running the type probe and the construction-time policy checks that
// spec.md describes ahead of format-specific inspection: probe failure,
// missing extension, the fixed malicious-extension list, and the
// extension/type cross-check.
func NewDescriptor(data []byte, filename string) *attachment.Descriptor {
	d := attachment.New(data, filename)

	result := probe.Probe(data, filename)
	d.MIMEType = attachment.MIMEType{Main: result.Main, Sub: result.Sub}
	d.Extension = result.Extension

	if !d.HasMimetype() {
		d.MakeDangerous()
	}
	if !d.HasExtension() {
		d.MakeDangerous()
	}
	if isMaliciousExtension(d.Extension) {
		d.AddLogDetail("malicious_extension", d.Extension)
		d.MakeDangerous()
	}
	if d.IsDangerous() {
		return d
	}

	d.AddLogDetail("maintype", d.MIMEType.Main)
	d.AddLogDetail("subtype", d.MIMEType.Sub)
	d.AddLogDetail("extension", d.Extension)

	if result.MimetypeMismatch {
		d.AddLogDetail("expected_mimetype", result.ExpectedMimetype)
		d.MakeDangerous()
	}
	if len(result.ExpectedExtensions) > 0 {
		d.AddLogDetail("expected_extensions", result.ExpectedExtensions)
	}

	return d
}
