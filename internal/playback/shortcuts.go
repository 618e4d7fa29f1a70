package playback

import "strings"

// Key is a key press as delivered by the page.
type Key struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool
}

// DevtoolsShortcut reports whether k opens developer tools, view-source, save or print:
// F12, Ctrl/Cmd+Shift+I/J/C, Ctrl/Cmd+U, Ctrl/Cmd+S, Ctrl/Cmd+P.
func DevtoolsShortcut(k Key) bool {
	if k.Key == "F12" {
		return true
	}
	if !k.Ctrl && !k.Meta {
		return false
	}
	key := strings.ToUpper(k.Key)
	if k.Shift {
		switch key {
		case "I", "J", "C":
			return true
		}
	}
	switch key {
	case "U", "S", "P":
		return true
	}
	return false
}

// PrintScreen reports whether k is the PrintScreen key.
func PrintScreen(k Key) bool {
	return k.Key == "PrintScreen"
}
