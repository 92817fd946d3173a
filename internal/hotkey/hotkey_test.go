package hotkey

import "testing"

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in   string
		want Accelerator
	}{
		{"Alt+Space", Accelerator{Mods: ModAlt, Key: "Space"}},
		{"ctrl+alt+space", Accelerator{Mods: ModCtrl | ModAlt, Key: "Space"}},
		{"Cmd+Shift+L", Accelerator{Mods: ModSuper | ModShift, Key: "L"}},
		{"Option + return", Accelerator{Mods: ModAlt, Key: "Enter"}},
		{"F9", Accelerator{Key: "F9"}},
		{"Control+F12", Accelerator{Mods: ModCtrl, Key: "F12"}},
		{"Super+7", Accelerator{Mods: ModSuper, Key: "7"}},
		{"Esc", Accelerator{Key: "Escape"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccelerator(tt.in)
			if err != nil {
				t.Fatalf("ParseAccelerator(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAccelerator(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAcceleratorErrors(t *testing.T) {
	for _, in := range []string{"", "Alt+", "Ctrl+Alt", "A+B", "Alt+F13", "Alt+F01", "Hyper+Space", "Alt+PageUp"} {
		if _, err := ParseAccelerator(in); err == nil {
			t.Errorf("ParseAccelerator(%q) should fail", in)
		}
	}
}

func TestAcceleratorString(t *testing.T) {
	a, err := ParseAccelerator("shift+super+ctrl+alt+k")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.String(); got != "Ctrl+Alt+Shift+Super+K" {
		t.Errorf("String() = %q", got)
	}
}
