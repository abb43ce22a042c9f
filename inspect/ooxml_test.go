package inspect

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/mailchannels/mailsanitizer/attachment"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%q): %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	return buf.Bytes()
}

func TestInspectOOXMLCleanDocument(t *testing.T) {
	disp := newTestDispatcher()
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   `<document/>`,
	})
	desc := &attachment.Descriptor{Bytes: data, LogDetails: map[string]interface{}{}}
	out := disp.inspectOOXML(desc, &State{})
	if out.IsDangerous() {
		t.Errorf("expected clean OOXML document to remain safe, got %+v", out.LogDetails)
	}
}

func TestInspectOOXMLMacroStream(t *testing.T) {
	disp := newTestDispatcher()
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/vbaProject.bin": "fake macro payload",
	})
	desc := &attachment.Descriptor{Bytes: data, LogDetails: map[string]interface{}{}}
	out := disp.inspectOOXML(desc, &State{})
	if !out.IsDangerous() {
		t.Fatalf("expected vbaProject.bin member to mark the document dangerous")
	}
	if out.LogDetails["macro"] != true {
		t.Errorf("expected macro log detail, got %+v", out.LogDetails)
	}
}

func TestInspectOOXMLEmbeddedOLEObject(t *testing.T) {
	disp := newTestDispatcher()
	data := buildZip(t, map[string]string{
		"[Content_Types].xml":            `<Types/>`,
		"word/embeddings/oleObject1.bin": "embedded",
	})
	desc := &attachment.Descriptor{Bytes: data, LogDetails: map[string]interface{}{}}
	out := disp.inspectOOXML(desc, &State{})
	if !out.IsDangerous() {
		t.Fatalf("expected embedded OLE object to mark the document dangerous")
	}
	if out.LogDetails["embedded_obj"] != true {
		t.Errorf("expected embedded_obj log detail, got %+v", out.LogDetails)
	}
}

func TestInspectOOXMLContentTypesDeclaresMacroEnabled(t *testing.T) {
	disp := newTestDispatcher()
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types><Override ContentType="application/vnd.ms-word.document.macroEnabled.main+xml"/></Types>`,
	})
	desc := &attachment.Descriptor{Bytes: data, LogDetails: map[string]interface{}{}}
	out := disp.inspectOOXML(desc, &State{})
	if !out.IsDangerous() {
		t.Fatalf("expected macroEnabled content type declaration to mark the document dangerous")
	}
}

func TestInspectOOXMLNotAZip(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: []byte("not a zip"), LogDetails: map[string]interface{}{}}
	out := disp.inspectOOXML(desc, &State{})
	if !out.IsDangerous() {
		t.Errorf("expected unparsable OOXML container to be dangerous")
	}
}
