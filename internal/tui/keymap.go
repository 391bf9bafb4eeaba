package tui

// quitKeys end the viewer without waiting for the log to close.
var quitKeys = []string{"q", "ctrl+c"}

// followKey toggles auto-scrolling in the log view.
const followKey = "f"

// clearKey empties the log panel.
const clearKey = "c"

func isQuitKey(key string) bool {
	for _, k := range quitKeys {
		if k == key {
			return true
		}
	}
	return false
}
