package inspect

// maliciousExtensions is the fixed list of extensions that are marked
// dangerous immediately, before any format-specific inspection runs.
// Sources: https://www.howtogeek.com/137270/50-file-extensions-that-are-potentially-dangerous-on-windows/
// and the WireGIT FilterSettings malicious-extension list.
var maliciousExtensions = map[string]bool{
	".exe": true, ".pif": true, ".application": true, ".gadget": true,
	".msi": true, ".msp": true, ".com": true, ".scr": true,
	".hta": true, ".cpl": true, ".msc": true, ".jar": true,

	".bat": true, ".cmd": true, ".vb": true, ".vbs": true, ".vbe": true,
	".js": true, ".jse": true, ".ws": true, ".wsf": true,
	".wsc": true, ".wsh": true, ".ps1": true, ".ps1xml": true,
	".ps2": true, ".ps2xml": true, ".psc1": true, ".psc2": true,
	".msh": true, ".msh1": true, ".msh2": true, ".mshxml": true,
	".msh1xml": true, ".msh2xml": true,

	".scf": true, ".lnk": true, ".inf": true,

	".reg": true, ".dll": true,

	".docm": true, ".dotm": true, ".xlsm": true, ".xltm": true, ".xlam": true,
	".pptm": true, ".potm": true, ".ppam": true, ".ppsm": true, ".sldm": true,

	".asf": true, ".asx": true, ".au": true, ".htm": true, ".html": true,
	".mht": true, ".wax": true, ".wm": true, ".wma": true, ".wmd": true,
	".wmv": true, ".wmx": true, ".wmz": true, ".wvx": true,
}

func isMaliciousExtension(ext string) bool {
	return maliciousExtensions[ext]
}
