package inspect

import (
	"testing"

	"github.com/mailchannels/mailsanitizer/attachment"
)

func TestCountPDFKeywords(t *testing.T) {
	data := []byte("%PDF-1.4\n/JavaScript (app.alert())\n/OpenAction << >>\n")
	counts := countPDFKeywords(data)
	if counts.javascript != 1 {
		t.Errorf("expected 1 /JavaScript occurrence, got %d", counts.javascript)
	}
	if counts.openAction != 1 {
		t.Errorf("expected 1 /OpenAction occurrence, got %d", counts.openAction)
	}
	if counts.js != 0 || counts.encrypt != 0 || counts.launch != 0 || counts.richMedia != 0 {
		t.Errorf("expected other keyword counts to be zero, got %+v", counts)
	}
}

func TestInspectPDFMalformedIsDangerous(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: []byte("not a pdf at all"), LogDetails: map[string]interface{}{}}
	out := disp.inspectPDF(desc, &State{})
	if !out.IsDangerous() {
		t.Fatalf("expected malformed PDF bytes to be dangerous")
	}
	if out.LogDetails["not_parsable"] != true {
		t.Errorf("expected not_parsable log detail, got %+v", out.LogDetails)
	}
}

func TestInspectPDFJavaScriptKeywordEscalates(t *testing.T) {
	disp := newTestDispatcher()
	desc := &attachment.Descriptor{Bytes: []byte("%PDF-1.4\n/JavaScript (evil)\n"), LogDetails: map[string]interface{}{}}
	out := disp.inspectPDF(desc, &State{})
	if !out.IsDangerous() {
		t.Fatalf("expected /JavaScript keyword to mark the document dangerous")
	}
	if out.LogDetails["javascript"] != true {
		t.Errorf("expected javascript log detail, got %+v", out.LogDetails)
	}
}
