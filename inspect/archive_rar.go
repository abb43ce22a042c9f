package inspect

import (
	"bytes"
	"io"

	"github.com/nwaples/rardecode"
)

// listRarMembers enumerates the member file names of a RAR archive. It
// exists to document, in executable form, what "unsupported archive"
// means for RAR: spec.md §4.3's archive dispatch table only branches on
// zip/tar/lzma/gzip/bzip substrings, so a probed RAR payload falls
// through to the unsupported-archive path in inspectArchive without
// ever reaching this function in production. It is exercised directly
// by archive_rar_test.go to pin that behavior against a real decoder
// instead of a magic-byte assertion.
func listRarMembers(data []byte) ([]string, error) {
	r, err := rardecode.NewReader(bytes.NewReader(data), "")
	if err != nil {
		return nil, err
	}
	var names []string
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return names, err
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}
