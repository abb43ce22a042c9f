package inspect

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
)

// inspectLibreOffice handles ODF documents: a ZIP container. There's no
// reliable sanity check for "this macro is safe", so any script-ish or
// binary-blob member makes the whole document dangerous.
func (disp *Dispatcher) inspectLibreOffice(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.AddLogDetail("processing_type", "libreoffice")

	zr, err := zip.NewReader(bytes.NewReader(desc.Bytes), int64(len(desc.Bytes)))
	if err != nil {
		desc.AddLogDetail("invalid", true)
		desc.MakeDangerous()
		return desc
	}

	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasPrefix(name, "script") || strings.HasPrefix(name, "basic") ||
			strings.HasPrefix(name, "object") || strings.HasSuffix(name, ".bin") {
			desc.AddLogDetail("macro", true)
			desc.MakeDangerous()
		}
	}
	return desc
}
