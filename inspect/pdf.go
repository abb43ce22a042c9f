package inspect

import (
	"bytes"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// inspectPDF handles application/pdf and application/postscript. It runs
// a structural validation pass via pdfcpu first, then a PDFiD-style
// keyword scan over the raw bytes, counting the handful of keywords known
// to carry active content: a document can fail validation and still be
// worth scanning for keywords, so the two checks don't short-circuit each
// other.
func (disp *Dispatcher) inspectPDF(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.AddLogDetail("processing_type", "pdf")

	if !validatePDF(desc.Bytes) {
		desc.AddLogDetail("not_parsable", true)
		desc.MakeDangerous()
	}

	counts := countPDFKeywords(desc.Bytes)
	if counts.encrypt > 0 {
		desc.AddLogDetail("encrypted", true)
		desc.MakeDangerous()
	}
	if counts.js > 0 || counts.javascript > 0 {
		desc.AddLogDetail("javascript", true)
		desc.MakeDangerous()
	}
	if counts.aa > 0 || counts.openAction > 0 {
		desc.AddLogDetail("openaction", true)
		desc.MakeDangerous()
	}
	if counts.richMedia > 0 {
		desc.AddLogDetail("flash", true)
		desc.MakeDangerous()
	}
	if counts.launch > 0 {
		desc.AddLogDetail("launch", true)
		desc.MakeDangerous()
	}
	return desc
}

type pdfKeywordCounts struct {
	encrypt, js, javascript, aa, openAction, richMedia, launch int
}

func countPDFKeywords(data []byte) pdfKeywordCounts {
	return pdfKeywordCounts{
		encrypt:    bytes.Count(data, []byte("/Encrypt")),
		js:         bytes.Count(data, []byte("/JS")),
		javascript: bytes.Count(data, []byte("/JavaScript")),
		aa:         bytes.Count(data, []byte("/AA")),
		openAction: bytes.Count(data, []byte("/OpenAction")),
		richMedia:  bytes.Count(data, []byte("/RichMedia")),
		launch:     bytes.Count(data, []byte("/Launch")),
	}
}

// validatePDF attempts a structural parse with pdfcpu. pdfcpu is known to
// panic rather than return an error on some malformed inputs, which is
// exactly the kind of failure this sanitizer must never let escape, so
// the call is wrapped with a recover.
func validatePDF(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return false
	}
	return true
}
