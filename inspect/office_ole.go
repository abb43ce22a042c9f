package inspect

import (
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/mailchannels/mailsanitizer/inspect/cfb"
)

// macroStreamNames are the storage/stream paths (relative to the root
// entry, compared case-insensitively) whose presence in a compound file's
// directory tree indicates an embedded VBA project. Only these exact paths
// match; the same names nested elsewhere in the tree do not.
var macroStreamNames = []string{"macros/vba", "macros", "_vba_project_cur", "vba"}

// inspectWinOffice handles legacy (binary, pre-OOXML) Office documents:
// .doc, .xls, .ppt and friends, stored as a Compound File Binary. It
// returns immediately on any parse failure rather than continuing to
// reference a partially-constructed reader.
func (disp *Dispatcher) inspectWinOffice(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.AddLogDetail("processing_type", "WinOffice")

	f, err := cfb.Open(desc.Bytes)
	if err != nil {
		if err == cfb.ErrStructural {
			desc.AddLogDetail("parsing_issues", true)
		} else {
			desc.AddLogDetail("not_parsable", true)
		}
		desc.MakeDangerous()
		return desc
	}

	if hasMacroStream(f.Names) {
		desc.AddLogDetail("macro", true)
		desc.MakeDangerous()
	}
	return desc
}

func hasMacroStream(names []string) bool {
	for _, n := range names {
		ln := strings.ToLower(n)
		for _, want := range macroStreamNames {
			if ln == want {
				return true
			}
		}
	}
	return false
}
