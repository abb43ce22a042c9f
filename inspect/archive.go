package inspect

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"github.com/mailchannels/mailsanitizer/attachment"
	"github.com/ulikunitz/xz/lzma"
)

// inspectArchive unpacks a supported container format into its member
// attachments and recursively dispatches each one. Archive-within-archive
// is refused outright: the in_archive guard allows exactly one level of
// nesting before the inner archive is marked dangerous untouched.
func (disp *Dispatcher) inspectArchive(desc *attachment.Descriptor, st *State) []*attachment.Descriptor {
	desc.AddLogDetail("processing_type", "archive")

	if st.InArchive {
		desc.AddLogDetail("recursive archive", true)
		desc.MakeDangerous()
		st.InArchive = false
		return single(desc)
	}
	st.InArchive = true
	defer func() { st.InArchive = false }()

	mt := desc.MIMEType.String()
	var (
		children []*attachment.Descriptor
		err      error
	)

	switch {
	case strings.Contains(mt, "lzma"):
		children, err = disp.unpackCompressedTarOrSingle(desc, st, lzmaDecompress)
	case strings.Contains(mt, "gzip"):
		children, err = disp.unpackCompressedTarOrSingle(desc, st, gzipDecompress)
	case strings.Contains(mt, "bzip"):
		children, err = disp.unpackCompressedTarOrSingle(desc, st, bzip2Decompress)
	case strings.Contains(mt, "zip"):
		children, err = disp.unpackZip(desc, st)
	case strings.Contains(mt, "tar"):
		children, err = disp.unpackTar(desc, st, desc.Bytes)
	default:
		desc.AddLogDetail("unsupported archive", true)
		desc.MakeDangerous()
		return single(desc)
	}

	if err != nil {
		desc.MakeDangerous()
		return single(desc)
	}
	return children
}

func (disp *Dispatcher) unpackZip(desc *attachment.Descriptor, st *State) ([]*attachment.Descriptor, error) {
	zr, err := zip.NewReader(bytes.NewReader(desc.Bytes), int64(len(desc.Bytes)))
	if err != nil {
		return nil, err
	}
	var out []*attachment.Descriptor
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		child := NewDescriptor(data, f.Name)
		out = append(out, disp.Dispatch(child, st)...)
	}
	return out, nil
}

func (disp *Dispatcher) unpackTar(desc *attachment.Descriptor, st *State, raw []byte) ([]*attachment.Descriptor, error) {
	tr := tar.NewReader(bytes.NewReader(raw))
	var out []*attachment.Descriptor
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		child := NewDescriptor(data, hdr.Name)
		out = append(out, disp.Dispatch(child, st)...)
	}
	return out, nil
}

type streamDecompressor func(r io.Reader) (io.Reader, error)

// unpackCompressedTarOrSingle mirrors the original's "try untar first,
// fall back to single-stream decompress": the raw bytes are decompressed
// once, then interpreted as a tar archive; if that fails, the decompressed
// bytes are themselves treated as a single child attachment whose name
// drops the archive's own extension (foo.tar.gz -> foo.tar).
func (disp *Dispatcher) unpackCompressedTarOrSingle(desc *attachment.Descriptor, st *State, decompress streamDecompressor) ([]*attachment.Descriptor, error) {
	r, err := decompress(bytes.NewReader(desc.Bytes))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if children, tarErr := disp.unpackTar(desc, st, data); tarErr == nil {
		return children, nil
	}

	newName := stripExt(desc.OrigFilename)
	child := NewDescriptor(data, newName)
	return disp.Dispatch(child, st), nil
}

func stripExt(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return filename
	}
	return strings.TrimSuffix(filename, ext)
}

func lzmaDecompress(r io.Reader) (io.Reader, error) {
	return lzma.NewReader(r)
}

func gzipDecompress(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func bzip2Decompress(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}
