package proctor

import (
	"strconv"
	"strings"
)

// restrictedKey reports whether a keydown falls on the denylist and returns
// a label for the combination.
func restrictedKey(e *Event, fullscreen bool) (string, bool) {
	key := e.Key
	upper := strings.ToUpper(key)
	ctrlOrMeta := e.Ctrl || e.Meta

	switch {
	case isFunctionKey(key):
		if e.Alt {
			return "Alt+" + key, true
		}
		return key, true
	case key == "Meta" || key == "OS":
		return "Meta", true
	case key == "Alt" || key == "AltGraph":
		return "Alt", true
	case key == "Escape" && fullscreen:
		return "Escape", true
	case e.Alt && key == "Tab":
		return "Alt+Tab", true
	case e.Ctrl && key == "Tab":
		return "Ctrl+Tab", true
	case ctrlOrMeta && e.Shift && (upper == "I" || upper == "J" || upper == "C"):
		return "DevTools (" + comboPrefix(e) + upper + ")", true
	case e.Meta && e.Alt && (upper == "I" || upper == "J" || upper == "C"):
		return "DevTools (Meta+Alt+" + upper + ")", true
	case ctrlOrMeta && upper == "U":
		return "View source", true
	case ctrlOrMeta && upper == "S":
		return "Save", true
	case ctrlOrMeta && upper == "P":
		return "Print", true
	}

	return "", false
}

func isFunctionKey(key string) bool {
	if len(key) < 2 || len(key) > 3 || key[0] != 'F' {
		return false
	}
	n, err := strconv.Atoi(key[1:])
	return err == nil && n >= 1 && n <= 12
}

func comboPrefix(e *Event) string {
	var b strings.Builder
	if e.Ctrl {
		b.WriteString("Ctrl+")
	}
	if e.Meta {
		b.WriteString("Meta+")
	}
	if e.Shift {
		b.WriteString("Shift+")
	}
	return b.String()
}
