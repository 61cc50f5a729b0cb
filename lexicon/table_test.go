package lexicon

import (
	"strings"
	"testing"
)

const testTrickyPhones = `# German extras
A: AA
6 ERR
`

func TestDefaultTable(t *testing.T) {
	tab := DefaultTable()
	tests := []struct {
		feature, in, want string
	}{
		{"phone", "ER6", "6"},
		{"prev_phone", "gstop", "?"},
		{"next_next_phone", "rr", "r="},
		{"sentence_punc", "qt", `"`},
		{"next_punctuation", "in", "?"},
		{"tobi_accent", "st", "*"},
		{"next_tobi_endtone", "ht", "^"},
		{"phone", "a", "a"},
		{"stressed", "ER6", "ER6"},
	}
	for _, tt := range tests {
		if got := tab.Unescape(tt.feature, tt.in); got != tt.want {
			t.Errorf("Unescape(%s, %s) = %q, want %q", tt.feature, tt.in, got, tt.want)
		}
	}
	if got := tab.Escape("phone", "=6"); got != "ER6" {
		t.Errorf("Escape(phone, =6) = %q, want ER6", got)
	}
	if got := tab.Escape("sentence_punc", ","); got != "cm" {
		t.Errorf("Escape(sentence_punc, ,) = %q, want cm", got)
	}
}

func TestLoad(t *testing.T) {
	tab, err := Load(strings.NewReader(testTrickyPhones))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := tab.Unescape("phone", "AA"); got != "A:" {
		t.Errorf("Unescape(AA) = %q, want A:", got)
	}
	// Overridden alias for 6; the default alias still maps back.
	if got := tab.Escape("phone", "6"); got != "ERR" {
		t.Errorf("Escape(6) = %q, want ERR", got)
	}
	if got := tab.Unescape("phone", "ER6"); got != "6" {
		t.Errorf("Unescape(ER6) = %q, want 6", got)
	}
	if n := len(tab.Aliases(Phone)); n != 11 {
		t.Errorf("phone aliases = %d, want 11", n)
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load(strings.NewReader("a b c\n")); err == nil {
		t.Error("expected error for three fields")
	}
}
