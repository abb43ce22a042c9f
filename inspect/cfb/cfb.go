// Package cfb is a minimal reader for the Compound File Binary format
// (the container used by legacy "Win-Office" documents: .doc, .xls, .ppt).
// It reads just enough of the structure — the header, the FAT sector
// chain, the directory stream — to enumerate storage/stream names and
// detect a corrupt or truncated file. It does not expose stream contents:
// the sanitizer only needs to know whether a macro-bearing stream exists,
// never to read or execute it.
//
// No Go library for this format turned up anywhere in the retrieved
// example corpus, so this is a from-scratch reader rather than an
// adaptation of a pack dependency; see DESIGN.md.
package cfb

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

const (
	headerSize      = 512
	direntSize      = 128
	freeSector      = 0xFFFFFFFF
	endOfChain      = 0xFFFFFFFE
	fatSector       = 0xFFFFFFFD
	difatSector     = 0xFFFFFFFC
	noStream        = 0xFFFFFFFF
	maxWalkedSector = 1 << 20 // guards against cyclic FAT chains in hostile input
)

var signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrNotCompoundFile is returned when the leading signature doesn't match.
var ErrNotCompoundFile = errors.New("cfb: not a compound file")

// ErrStructural is returned for any internal inconsistency found while
// walking the FAT / directory chains: out-of-range sector references,
// chains that don't terminate, truncated data.
var ErrStructural = errors.New("cfb: structural inconsistency")

// File is a parsed compound file. Names holds every storage/stream
// encountered in the directory tree, as lowercase "/"-joined paths
// relative to the root entry.
type File struct {
	Names []string
}

// Open parses data as a compound file and returns the set of storage and
// stream names it contains.
func Open(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrNotCompoundFile
	}
	for i, b := range signature {
		if data[i] != b {
			return nil, ErrNotCompoundFile
		}
	}

	sectorShift := binary.LittleEndian.Uint16(data[30:32])
	if sectorShift < 7 || sectorShift > 16 {
		return nil, ErrStructural
	}
	sectorSize := 1 << sectorShift
	numFATSectors := binary.LittleEndian.Uint32(data[44:48])
	firstDirSector := binary.LittleEndian.Uint32(data[48:52])

	fatChain := make([]uint32, 0, 109)
	for i := 0; i < 109; i++ {
		off := 76 + i*4
		fatChain = append(fatChain, binary.LittleEndian.Uint32(data[off:off+4]))
	}
	// DIFAT sectors beyond the first 109 entries aren't followed: a
	// legitimate Office document never needs more than 109 FAT sectors
	// (that's already room for 13,952 512-byte sectors, about 7 MB), so a document
	// that does is already suspicious.
	if numFATSectors > uint32(len(fatChain)) {
		return nil, ErrStructural
	}

	fat, err := readFAT(data, sectorSize, fatChain, numFATSectors)
	if err != nil {
		return nil, err
	}

	dirBytes, err := readChain(data, sectorSize, fat, firstDirSector)
	if err != nil {
		return nil, err
	}

	entries, err := parseDirectory(dirBytes)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrStructural
	}

	f := &File{}
	walk(entries, 0, "", &f.Names, 0)
	return f, nil
}

type direntry struct {
	name        string
	objectType  byte
	left, right int32
	child       int32
}

func readFAT(data []byte, sectorSize int, difat []uint32, numFATSectors uint32) ([]uint32, error) {
	var fat []uint32
	for i := uint32(0); i < numFATSectors; i++ {
		if i >= uint32(len(difat)) {
			return nil, ErrStructural
		}
		sec := difat[i]
		buf, err := readSector(data, sectorSize, sec)
		if err != nil {
			return nil, err
		}
		for off := 0; off+4 <= len(buf); off += 4 {
			fat = append(fat, binary.LittleEndian.Uint32(buf[off:off+4]))
		}
	}
	return fat, nil
}

func readSector(data []byte, sectorSize int, sector uint32) ([]byte, error) {
	start := headerSize + int(sector)*sectorSize
	end := start + sectorSize
	if sector == freeSector || start < headerSize || end > len(data) {
		return nil, ErrStructural
	}
	return data[start:end], nil
}

// readChain follows the FAT chain starting at first and concatenates every
// sector's bytes.
func readChain(data []byte, sectorSize int, fat []uint32, first uint32) ([]byte, error) {
	var out []byte
	sec := first
	seen := map[uint32]bool{}
	for sec != endOfChain && sec != freeSector {
		if seen[sec] || len(seen) > maxWalkedSector {
			return nil, ErrStructural
		}
		seen[sec] = true
		buf, err := readSector(data, sectorSize, sec)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
		if int(sec) >= len(fat) {
			return nil, ErrStructural
		}
		sec = fat[sec]
	}
	return out, nil
}

func parseDirectory(b []byte) ([]direntry, error) {
	if len(b)%direntSize != 0 {
		return nil, ErrStructural
	}
	n := len(b) / direntSize
	entries := make([]direntry, n)
	for i := 0; i < n; i++ {
		e := b[i*direntSize : (i+1)*direntSize]
		nameLenBytes := binary.LittleEndian.Uint16(e[64:66])
		if nameLenBytes > 64 {
			return nil, ErrStructural
		}
		var name string
		if nameLenBytes >= 2 {
			u16 := make([]uint16, 0, 32)
			for off := 0; off < int(nameLenBytes)-2; off += 2 {
				u16 = append(u16, binary.LittleEndian.Uint16(e[off:off+2]))
			}
			name = string(utf16.Decode(u16))
		}
		entries[i] = direntry{
			name:       name,
			objectType: e[66],
			left:       int32(binary.LittleEndian.Uint32(e[68:72])),
			right:      int32(binary.LittleEndian.Uint32(e[72:76])),
			child:      int32(binary.LittleEndian.Uint32(e[76:80])),
		}
	}
	return entries, nil
}

// walk recursively visits the red-black tree of sibling entries rooted at
// id, appending every storage/stream's path-joined name to names. depth
// guards against cyclic sibling/child links in hostile input.
func walk(entries []direntry, id int32, prefix string, names *[]string, depth int) {
	if id < 0 || int(id) >= len(entries) || depth > len(entries)+8 {
		return
	}
	e := entries[id]
	switch e.objectType {
	case 1, 2, 5: // storage, stream, root
		full := e.name
		if prefix != "" {
			full = prefix + "/" + e.name
		}
		if e.objectType != 5 {
			*names = append(*names, full)
		}
		if e.objectType != 2 {
			// The root entry's own name ("Root Entry") is never part of a
			// path: its children are named relative to the root, not to it.
			childPrefix := full
			if e.objectType == 5 {
				childPrefix = ""
			}
			walk(entries, e.child, childPrefix, names, depth+1)
		}
	}
	walk(entries, e.left, prefix, names, depth+1)
	walk(entries, e.right, prefix, names, depth+1)
}
