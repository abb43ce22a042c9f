package inspect

import (
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
)

const ooxmlSubstring = "vnd.openxmlformats-officedocument."

// inspectText handles text/*, application/xml, application/pgp-signature
// and RTF payloads. RTF gets its own label; a (rare) OOXML subtype routed
// here falls through to the OOXML inspector; everything else is labeled
// plain text. All of them end up forced to a .txt extension, except when
// the OOXML branch took over (that inspector owns the extension policy
// for office documents).
func (disp *Dispatcher) inspectText(desc *attachment.Descriptor, st *State) *attachment.Descriptor {
	sub := desc.MIMEType.Sub
	if strings.Contains(sub, "rtf") || strings.Contains(sub, "richtext") {
		desc.LogString += "Rich Text file"
		desc.ForceExt(".txt")
		return desc
	}
	if strings.Contains(sub, ooxmlSubstring) {
		desc.LogString += "OOXML File"
		return disp.inspectOOXML(desc, st)
	}
	desc.LogString += "Text file"
	desc.ForceExt(".txt")
	return desc
}
