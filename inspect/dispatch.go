// Package inspect routes an attachment.Descriptor to the format-family
// inspector for its probed MIME type, recursing into container formats
// (archives, nested messages) while tracking recursion depth.
package inspect

import (
	"fmt"
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/mailchannels/mailsanitizer/logging"
)

// State is the per-process_mail-invocation recursion frame: the nested
// message depth and the one-level archive-recursion guard. Callers create
// one State per top-level Sanitize call and thread it through the whole
// attachment tree for that message; it must never be shared between
// concurrent invocations.
type State struct {
	MailDepth int
	InArchive bool
}

// ProcessNestedMail sanitizes a nested message/* payload and returns the
// sanitized raw bytes. It is supplied by the splitter/reassembler so that
// inspect need not import it back (that package already imports inspect
// to drive the dispatcher over each attachment). It receives the current
// recursion State so the nested message's own attachments are dispatched
// against the same shared mail-depth counter rather than a fresh one.
type ProcessNestedMail func(raw []byte, st *State) ([]byte, error)

// Dispatcher routes descriptors to inspectors and owns the configuration
// that bounds recursion.
type Dispatcher struct {
	MaxRecursive      int
	ProcessNestedMail ProcessNestedMail
	Logger            logging.Logger
}

// NewDispatcher returns a Dispatcher with the given recursion bound. A
// MaxRecursive below 1 is treated as 1.
func NewDispatcher(maxRecursive int, processNestedMail ProcessNestedMail, logger logging.Logger) *Dispatcher {
	if maxRecursive < 1 {
		maxRecursive = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		MaxRecursive:      maxRecursive,
		ProcessNestedMail: processNestedMail,
		Logger:            logger,
	}
}

type subtypeRoute struct {
	substrings []string
	label      string
	inspect    func(disp *Dispatcher, desc *attachment.Descriptor, st *State) []*attachment.Descriptor
}

// applicationRoutes is the application/* subtype dispatch table, checked
// top to bottom with first-substring-match-wins semantics. OOXML is
// checked ahead of the broader msword/vnd.ms- office group: OOXML subtypes
// never contain those substrings so there's no practical conflict, but the
// order is made explicit rather than left to map iteration.
var applicationRoutes = []subtypeRoute{
	{[]string{"vnd.openxmlformats-officedocument."}, "ooxml", wrapSingle((*Dispatcher).inspectOOXML)},
	{[]string{"msword", "vnd.ms-"}, "winoffice", wrapSingle((*Dispatcher).inspectWinOffice)},
	{[]string{"rtf", "richtext"}, "text", wrapSingle((*Dispatcher).inspectText)},
	{[]string{"vnd.oasis.opendocument"}, "libreoffice", wrapSingle((*Dispatcher).inspectLibreOffice)},
	{[]string{"pdf", "postscript"}, "pdf", wrapSingle((*Dispatcher).inspectPDF)},
	{[]string{"xml"}, "text", wrapSingle((*Dispatcher).inspectText)},
	{[]string{"dosexec"}, "executable", wrapSingle((*Dispatcher).inspectExecutable)},
	{[]string{"zip", "rar", "bzip2", "lzip", "lzma", "lzop", "xz", "compress", "gzip", "tar"}, "archive", (*Dispatcher).inspectArchive},
	{[]string{"octet-stream"}, "binary", wrapSingle((*Dispatcher).inspectBinaryApp)},
	{[]string{"pgp-signature"}, "text", wrapSingle((*Dispatcher).inspectText)},
}

// wrapSingle adapts a single-descriptor inspector (every format family
// except archives, which may expand into several children) to the
// []*attachment.Descriptor shape the dispatch table uses uniformly.
func wrapSingle(fn func(disp *Dispatcher, desc *attachment.Descriptor, st *State) *attachment.Descriptor) func(*Dispatcher, *attachment.Descriptor, *State) []*attachment.Descriptor {
	return func(disp *Dispatcher, desc *attachment.Descriptor, st *State) []*attachment.Descriptor {
		return single(fn(disp, desc, st))
	}
}

// Dispatch routes desc to the correct inspector and returns the resulting
// descriptor(s): usually a single-element slice, more than one when an
// archive was unpacked into its members.
func (disp *Dispatcher) Dispatch(desc *attachment.Descriptor, st *State) (out []*attachment.Descriptor) {
	if desc.IsDangerous() {
		// Already dangerous from construction-time policy (malicious
		// extension, broken probe, missing extension): skip format
		// inspection entirely per spec.
		return []*attachment.Descriptor{desc}
	}

	defer func() {
		if r := recover(); r != nil {
			desc.AddLogDetail("inspector_exception", fmt.Sprint(r))
			desc.MakeDangerous()
			out = single(desc)
		}
	}()

	switch desc.MIMEType.Main {
	case "application":
		return disp.dispatchApplication(desc, st)
	case "text":
		return single(disp.inspectText(desc, st))
	case "audio":
		return single(disp.inspectMedia(desc, "Audio file"))
	case "image":
		return single(disp.inspectMedia(desc, "Image file"))
	case "video":
		return single(disp.inspectMedia(desc, "Video file"))
	case "message":
		return single(disp.inspectMessage(desc, st))
	case "model":
		desc.LogString += "Model file"
		desc.MakeDangerous()
		return single(desc)
	case "example":
		desc.LogString += "Example file"
		return single(desc)
	case "multipart":
		desc.LogString += "Multipart file"
		return single(desc)
	case "inode":
		desc.LogString += "Inode file"
		return single(desc)
	default:
		desc.LogString += "Unknown file"
		return single(desc)
	}
}

func (disp *Dispatcher) dispatchApplication(desc *attachment.Descriptor, st *State) []*attachment.Descriptor {
	for _, route := range applicationRoutes {
		for _, sub := range route.substrings {
			if strings.Contains(desc.MIMEType.Sub, sub) {
				desc.LogString += "Application file"
				return route.inspect(disp, desc, st)
			}
		}
	}
	desc.LogString += "Unknown Application file"
	desc.MakeUnknown()
	return single(desc)
}

// single wraps a single-descriptor inspector result the way every
// non-archive inspector returns: the descriptor may
// have been mutated in place but the identity never changes.
func single(d *attachment.Descriptor) []*attachment.Descriptor {
	return []*attachment.Descriptor{d}
}

func (disp *Dispatcher) inspectMessage(desc *attachment.Descriptor, st *State) *attachment.Descriptor {
	desc.LogString += "Message file"
	st.MailDepth++
	defer func() { st.MailDepth-- }()

	if st.MailDepth > disp.MaxRecursive {
		desc.AddLogDetail("too_many_recursive_mails", true)
		desc.MakeDangerous()
		disp.Logger.Warn("nested message recursion limit exceeded")
		return desc
	}

	if disp.ProcessNestedMail == nil {
		desc.AddLogDetail("inspector_exception", "no nested mail processor configured")
		desc.MakeDangerous()
		return desc
	}

	sanitized, err := disp.ProcessNestedMail(desc.Bytes, st)
	if err != nil {
		desc.AddLogDetail("not_parsable", true)
		desc.MakeDangerous()
		return desc
	}
	desc.Bytes = sanitized
	desc.AddLogDetail("processing_type", "message")
	return desc
}

func (disp *Dispatcher) inspectMedia(desc *attachment.Descriptor, label string) *attachment.Descriptor {
	desc.LogString += label
	desc.AddLogDetail("processing_type", "media")
	return desc
}

func (disp *Dispatcher) inspectBinaryApp(desc *attachment.Descriptor, _ *State) *attachment.Descriptor {
	desc.MakeBinary()
	return desc
}
