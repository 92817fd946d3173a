package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Accelerator is a parsed hotkey such as "Ctrl+Alt+Space".
type Accelerator struct {
	Mods Modifier
	// Key is the canonical key name: "A"-"Z", "0"-"9", "F1"-"F12",
	// "Space", "Enter", "Tab" or "Escape".
	Key string
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

var keyAliases = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"return": "Enter",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
}

// ParseAccelerator parses a "+"-separated accelerator. Modifier and key
// names are case-insensitive; exactly one non-modifier key is required.
func ParseAccelerator(accel string) (Accelerator, error) {
	var a Accelerator
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("empty accelerator")
	}

	for _, raw := range strings.Split(accel, "+") {
		part := strings.ToLower(strings.TrimSpace(raw))
		if part == "" {
			return a, fmt.Errorf("invalid accelerator %q", accel)
		}
		if mod, ok := modifierNames[part]; ok {
			a.Mods |= mod
			continue
		}
		if a.Key != "" {
			return a, fmt.Errorf("accelerator %q has more than one key", accel)
		}
		key, err := canonicalKey(part)
		if err != nil {
			return a, fmt.Errorf("accelerator %q: %w", accel, err)
		}
		a.Key = key
	}

	if a.Key == "" {
		return a, fmt.Errorf("accelerator %q has no key", accel)
	}
	return a, nil
}

func canonicalKey(name string) (string, error) {
	if key, ok := keyAliases[name]; ok {
		return key, nil
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(name), nil
		case c >= '0' && c <= '9':
			return name, nil
		}
	}
	if name[0] == 'f' && name[1] != '0' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 12 {
			return "F" + name[1:], nil
		}
	}
	return "", fmt.Errorf("unsupported key %q", name)
}
