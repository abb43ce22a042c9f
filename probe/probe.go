// Package probe identifies a byte blob's media type from its content
// (magic) and reconciles it with the declared filename extension.
package probe

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// aliases collapses known-equivalent MIME types before comparison.
var aliases = map[string]string{
	"application/x-msdos-program": "application/x-dosexec",
	"application/x-dosexec":       "application/x-msdos-program",
	"application/rtf":             "text/rtf",
	"application/pgp-signature":   "text/plain",
}

// extAliases maps an extension to the extension the system MIME database
// should be consulted under instead, when computing expected extensions.
var extAliases = map[string]string{
	".asc": ".sig",
}

// overrideTypes hard-codes the expected type for extensions where the
// system MIME database gives misleading results for double-extension
// archives (.tar.gz, .tgz) or where the database simply doesn't know the
// extension (.asc).
var overrideTypes = map[string]string{
	".gz":  "application/gzip",
	".tgz": "application/gzip",
	".asc": "application/pgp-signature",
}

// Result is the outcome of probing one payload.
type Result struct {
	Main      string
	Sub       string
	Extension string

	// BrokenMIME is true when the magic probe couldn't be split into a
	// main/sub pair.
	BrokenMIME bool

	// ExpectedMimetype is set when the extension is known to the system
	// MIME database and disagrees with the probed type.
	ExpectedMimetype string
	MimetypeMismatch bool

	// ExpectedExtensions is the inverse lookup: extensions the system MIME
	// database associates with the probed type. Recorded but never causes
	// a mismatch escalation on its own.
	ExpectedExtensions []string
}

func (r Result) Probed() string {
	if r.Main == "" && r.Sub == "" {
		return ""
	}
	return r.Main + "/" + r.Sub
}

// Extension returns the lowercased final suffix of filename, or "" if it
// has none.
func Extension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}

func normalize(mt string) string {
	if a, ok := aliases[mt]; ok {
		return a
	}
	return mt
}

// Probe derives the extension of declaredFilename and probes the content
// type of data, then cross-checks the two against the system MIME
// database, recording (but not escalating on) the inverse extension
// lookup.
func Probe(data []byte, declaredFilename string) Result {
	r := Result{Extension: Extension(declaredFilename)}

	detected := mimetype.Detect(data)
	probed := detected.String()
	// mimetype.String() may carry "; charset=..."; strip parameters.
	if mediaType, _, err := mime.ParseMediaType(probed); err == nil {
		probed = mediaType
	}

	main, sub, ok := splitType(probed)
	if !ok {
		r.BrokenMIME = true
		return r
	}
	r.Main, r.Sub = main, sub

	expected := expectedMimetype(r.Extension, declaredFilename)
	isKnownExt := r.Extension != "" && mime.TypeByExtension(r.Extension) != ""
	if isKnownExt && expected != "" && expected != r.Probed() {
		r.ExpectedMimetype = expected
		r.MimetypeMismatch = true
	}

	r.ExpectedExtensions = expectedExtensions(normalize(r.Probed()))

	return r
}

func splitType(probed string) (main, sub string, ok bool) {
	idx := strings.IndexByte(probed, '/')
	if idx <= 0 || idx == len(probed)-1 {
		return "", "", false
	}
	return probed[:idx], probed[idx+1:], true
}

// expectedMimetype computes the type a sane system would expect for
// declaredFilename, consulting the override table first.
func expectedMimetype(ext, declaredFilename string) string {
	if t, ok := overrideTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		t = mediaType
	}
	return normalize(t)
}

// expectedExtensions is the inverse of expectedMimetype: every extension
// the system associates with mimetype, plus alias expansions.
func expectedExtensions(mt string) []string {
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return nil
	}
	set := map[string]bool{}
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	for e := range set {
		if alias, ok := extAliases[e]; ok {
			set[alias] = true
		}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}
