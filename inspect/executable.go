package inspect

import "github.com/mailchannels/mailsanitizer/attachment"

// inspectExecutable handles application/x-dosexec and aliases: these are
// unconditionally dangerous, no further analysis is useful.
func (disp *Dispatcher) inspectExecutable(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.AddLogDetail("processing_type", "executable")
	desc.MakeDangerous()
	return desc
}
