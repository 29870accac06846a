package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"local with leading zero", "0821234567", "27821234567", true},
		{"already has country code", "27821234567", "27821234567", true},
		{"plus prefix", "+27821234567", "27821234567", true},
		{"international dialing prefix", "0027821234567", "27821234567", true},
		{"spaces and punctuation", "+27 82 123-4567", "27821234567", true},
		{"bare local without zero", "821234567", "27821234567", true},
		{"empty", "", "", false},
		{"letters only", "call me", "", false},
		{"too short", "12345", "", false},
		{"too long", "12345678901234567890", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_SameNumberDifferentForms(t *testing.T) {
	forms := []string{"0821234567", "+27821234567", "27 82 123 4567", "0027821234567"}
	first, ok := Normalize(forms[0])
	if !ok {
		t.Fatal("expected first form to normalize")
	}
	for _, f := range forms[1:] {
		got, ok := Normalize(f)
		if !ok || got != first {
			t.Errorf("Normalize(%q) = %q, %v; want %q, true", f, got, ok, first)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("27821234567"); got != "+27 82 123 4567" {
		t.Errorf("Display = %q", got)
	}
	if got := Display("123456789012"); got != "+123456789012" {
		t.Errorf("Display fallback = %q", got)
	}
}
