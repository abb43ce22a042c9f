package inspect

import "testing"

func TestIsMaliciousExtension(t *testing.T) {
	cases := map[string]bool{
		".exe": true, ".scr": true, ".js": true, ".html": true,
		".pdf": false, ".docx": false, ".txt": false, "": false,
	}
	for ext, want := range cases {
		if got := isMaliciousExtension(ext); got != want {
			t.Errorf("isMaliciousExtension(%q) = %v, want %v", ext, got, want)
		}
	}
}
