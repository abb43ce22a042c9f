package inspect

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/mailchannels/mailsanitizer/attachment"
)

// buildCFB constructs the smallest valid Compound File Binary document
// containing the given stream names as direct children of the root entry.
// See inspect/cfb/cfb_test.go for the format notes; duplicated here in
// miniature because the fixture is package-local to each test package.
func buildCFB(names []string) []byte {
	const sectorSize = 512
	const direntSize = 128
	numEntries := 1 + len(names)
	dirSectors := (numEntries*direntSize + sectorSize - 1) / sectorSize
	if dirSectors == 0 {
		dirSectors = 1
	}

	data := make([]byte, 512+sectorSize*(1+dirSectors))
	copy(data[0:8], []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(data[30:32], 9)
	binary.LittleEndian.PutUint32(data[44:48], 1)
	binary.LittleEndian.PutUint32(data[48:52], 1)
	binary.LittleEndian.PutUint32(data[76:80], 0)

	fatOff := 512
	binary.LittleEndian.PutUint32(data[fatOff:fatOff+4], 0xFFFFFFFD)
	for i := 0; i < dirSectors; i++ {
		next := uint32(0xFFFFFFFE)
		if i < dirSectors-1 {
			next = uint32(1 + i + 1)
		}
		binary.LittleEndian.PutUint32(data[fatOff+4*(1+i):fatOff+4*(1+i)+4], next)
	}

	dirOff := 512 + sectorSize
	rootChild := int32(-1)
	if len(names) > 0 {
		rootChild = 1
	}
	writeCFBEntry(data, dirOff, 0, "Root Entry", 5, -1, -1, rootChild)
	for i, name := range names {
		right := int32(-1)
		if i+1 < len(names) {
			right = int32(i + 2)
		}
		writeCFBEntry(data, dirOff, i+1, name, 2, -1, right, -1)
	}
	return data
}

func writeCFBEntry(data []byte, dirOff, index int, name string, objectType byte, left, right, child int32) {
	off := dirOff + index*128
	u16 := utf16.Encode([]rune(name))
	nameBytes := make([]byte, 0, len(u16)*2+2)
	for _, u := range u16 {
		nameBytes = append(nameBytes, byte(u), byte(u>>8))
	}
	nameBytes = append(nameBytes, 0, 0)
	copy(data[off:off+64], nameBytes)
	binary.LittleEndian.PutUint16(data[off+64:off+66], uint16(len(nameBytes)))
	data[off+66] = objectType
	binary.LittleEndian.PutUint32(data[off+68:off+72], uint32(left))
	binary.LittleEndian.PutUint32(data[off+72:off+76], uint32(right))
	binary.LittleEndian.PutUint32(data[off+76:off+80], uint32(child))
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(2, nil, nil)
}

func TestInspectWinOfficeWithMacroStream(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: buildCFB([]string{"VBA"}), LogDetails: map[string]interface{}{}}
	out := disp.inspectWinOffice(desc, &State{})
	if !out.IsDangerous() {
		t.Errorf("expected macro stream to mark the document dangerous")
	}
	if out.LogDetails["macro"] != true {
		t.Errorf("expected macro log detail to be set, got %+v", out.LogDetails)
	}
}

func TestInspectWinOfficeWithoutMacroStream(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: buildCFB([]string{"WordDocument"}), LogDetails: map[string]interface{}{}}
	out := disp.inspectWinOffice(desc, &State{})
	if out.IsDangerous() {
		t.Errorf("expected clean document to remain non-dangerous, got log details %+v", out.LogDetails)
	}
}

func TestInspectWinOfficeNotCompoundFile(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: []byte("not an OLE file"), LogDetails: map[string]interface{}{}}
	out := disp.inspectWinOffice(desc, &State{})
	if !out.IsDangerous() {
		t.Errorf("expected unparsable compound file to be dangerous")
	}
	if out.LogDetails["not_parsable"] != true {
		t.Errorf("expected not_parsable log detail, got %+v", out.LogDetails)
	}
}
