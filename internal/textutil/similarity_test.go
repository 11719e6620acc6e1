package textutil

import "testing"

func TestDistanceIdentity(t *testing.T) {
	inputs := []string{"", "a", "Hollow Knight", "Dark Souls: Prepare to Die Edition", "日本語タイトル"}
	for _, input := range inputs {
		if got := Distance(input, input); got != 0 {
			t.Errorf("Distance(%q, %q) = %d, want 0", input, input, got)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"empty vs word", "", "abc", 3},
		{"word vs empty", "abc", "", 3},
		{"single substitution", "kitten", "mitten", 1},
		{"classic", "kitten", "sitting", 3},
		{"case insensitive", "HOLLOW KNIGHT", "hollow knight", 0},
		{"insertion", "Doom", "Dooms", 1},
		{"unicode runes", "Pokémon", "Pokemon", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Dark Souls", "Dark Souls II"},
		{"Celeste", "Selda"},
		{"", "x"},
	}
	for _, pair := range pairs {
		if Distance(pair[0], pair[1]) != Distance(pair[1], pair[0]) {
			t.Errorf("Distance not symmetric for %q and %q", pair[0], pair[1])
		}
	}
}
