package inspect

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
)

// inspectOOXML handles modern Office documents (docx/xlsx/pptx and their
// macro-enabled siblings): a ZIP container of XML parts. Any parse
// failure is dangerous; otherwise the part names (and, for macros, the
// content-types manifest) are inspected for the four danger features the
// original CVE-driven heuristics target.
func (disp *Dispatcher) inspectOOXML(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.AddLogDetail("processing_type", "ooxml")

	zr, err := zip.NewReader(bytes.NewReader(desc.Bytes), int64(len(desc.Bytes)))
	if err != nil {
		desc.MakeDangerous()
		return desc
	}

	var macro, activeX, embeddedObj, embeddedPack bool
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		switch {
		case strings.Contains(name, "vbaproject"):
			macro = true
		case strings.Contains(name, "activex"):
			activeX = true
		case strings.Contains(name, "embeddings/") && strings.Contains(name, "oleobject"):
			embeddedObj = true
		case strings.Contains(name, "embeddings/"):
			embeddedPack = true
		case name == "[content_types].xml":
			if contentTypesDeclareMacro(f) {
				macro = true
			}
		}
	}

	if macro {
		desc.AddLogDetail("macro", true)
		desc.MakeDangerous()
	}
	if activeX {
		desc.AddLogDetail("activex", true)
		desc.MakeDangerous()
	}
	if embeddedObj {
		// CVE-2014-4114 class: embedded OLE objects used to smuggle
		// executable content past the OOXML sandbox.
		desc.AddLogDetail("embedded_obj", true)
		desc.MakeDangerous()
	}
	if embeddedPack {
		desc.AddLogDetail("embedded_pack", true)
		desc.MakeDangerous()
	}
	return desc
}

func contentTypesDeclareMacro(f *zip.File) bool {
	rc, err := f.Open()
	if err != nil {
		return false
	}
	defer rc.Close()

	buf := make([]byte, 8192)
	n, _ := rc.Read(buf)
	return bytes.Contains(bytes.ToLower(buf[:n]), []byte("macroenabled"))
}
