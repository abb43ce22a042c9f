// Package attachment holds the in-memory record for one payload under
// inspection: its bytes, names, probed type, accumulated diagnostics and
// danger state.
package attachment

import "strings"

// State is the danger classification of a Descriptor. The zero value is
// Safe. States are monotonically non-decreasing: once an inspector raises
// a Descriptor's state, nothing lowers it again.
type State int

const (
	Safe State = iota
	Unknown
	Binary
	Dangerous
)

func (s State) String() string {
	switch s {
	case Safe:
		return "safe"
	case Unknown:
		return "unknown"
	case Binary:
		return "binary"
	case Dangerous:
		return "dangerous"
	default:
		return "safe"
	}
}

// MIMEType is a probed (main, sub) content type pair.
type MIMEType struct {
	Main string
	Sub  string
}

func (m MIMEType) String() string {
	if m.Main == "" && m.Sub == "" {
		return ""
	}
	return m.Main + "/" + m.Sub
}

// Descriptor is the record for a single binary payload under analysis.
// It is created once by the splitter or a container inspector and mutated
// only by the inspector currently handling it; the reassembler consumes it
// read-only. A Descriptor is never shared concurrently.
type Descriptor struct {
	Bytes []byte

	OrigFilename string
	hasOrigName  bool

	FinalFilename string

	// Extension is the lowercased final suffix of OrigFilename, including
	// the leading dot. Empty if OrigFilename has no suffix.
	Extension string

	MIMEType MIMEType

	LogDetails map[string]interface{}
	LogString  string

	State State
}

const defaultUnknownName = "unknownfile.bin"

// New creates a Descriptor for raw bytes carrying (possibly absent)
// origFilename. It does not probe the content type or apply any danger
// heuristics; callers build those up via AddLogDetail / the Make*
// methods once the type has been probed.
func New(data []byte, origFilename string) *Descriptor {
	d := &Descriptor{
		Bytes:      data,
		LogDetails: map[string]interface{}{},
	}
	d.hasOrigName = origFilename != ""
	d.OrigFilename = origFilename
	d.LogDetails["origFilename"] = origFilename
	if d.hasOrigName {
		d.FinalFilename = origFilename
		d.Extension = lowerExt(origFilename)
	} else {
		d.FinalFilename = defaultUnknownName
	}
	return d
}

func lowerExt(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	// a dotfile with no further suffix, e.g. ".bashrc", has no extension
	if idx == 0 || (idx == strings.LastIndexByte(filename, '/')+1) {
		return ""
	}
	return strings.ToLower(filename[idx:])
}

// HasMimetype reports whether the probe succeeded in assigning both a main
// and sub type. A false result records the broken_mime diagnostic.
func (d *Descriptor) HasMimetype() bool {
	if d.MIMEType.Main == "" || d.MIMEType.Sub == "" {
		d.AddLogDetail("broken_mime", true)
		return false
	}
	return true
}

// HasExtension reports whether OrigFilename carried a usable suffix. A
// false result records the no_extension diagnostic.
func (d *Descriptor) HasExtension() bool {
	if d.Extension == "" {
		d.AddLogDetail("no_extension", true)
		return false
	}
	return true
}

// IsDangerous reports whether the Descriptor has been marked Dangerous.
func (d *Descriptor) IsDangerous() bool {
	return d.State == Dangerous
}

// AddLogDetail sets one diagnostic entry; the last write for a given key
// wins.
func (d *Descriptor) AddLogDetail(key string, value interface{}) {
	d.LogDetails[key] = value
}

// MakeDangerous marks the Descriptor Dangerous and wraps FinalFilename in
// DANGEROUS_..._DANGEROUS. Idempotent: calling it again on an already
// dangerous Descriptor is a no-op, including the filename.
func (d *Descriptor) MakeDangerous() {
	if d.IsDangerous() {
		return
	}
	d.State = Dangerous
	d.LogDetails["dangerous"] = true
	d.FinalFilename = "DANGEROUS_" + d.FinalFilename + "_DANGEROUS"
}

// MakeUnknown marks the Descriptor Unknown and prefixes FinalFilename with
// UNKNOWN_, unless it is already Binary or Dangerous.
func (d *Descriptor) MakeUnknown() {
	if d.State >= Binary {
		return
	}
	d.State = Unknown
	d.LogDetails["unknown"] = true
	d.FinalFilename = "UNKNOWN_" + d.FinalFilename
}

// MakeBinary marks the Descriptor Binary and appends .bin to
// FinalFilename, unless it is already Dangerous.
func (d *Descriptor) MakeBinary() {
	if d.IsDangerous() {
		return
	}
	d.State = Binary
	d.LogDetails["binary"] = true
	d.FinalFilename += ".bin"
}

// ForceExt appends ext to FinalFilename if it doesn't already end with it,
// and records force_ext = true when it does so.
func (d *Descriptor) ForceExt(ext string) {
	if strings.HasSuffix(d.FinalFilename, ext) {
		return
	}
	d.LogDetails["force_ext"] = true
	d.FinalFilename += ext
}
