package config

import "testing"

func TestCompileIgnoreRules(t *testing.T) {
	rules, err := CompileIgnoreRules([]string{"staging", "/^test-.*/"})
	if err != nil {
		t.Fatalf("CompileIgnoreRules() error: %v", err)
	}

	tests := []struct {
		env  string
		rule int
		want bool
	}{
		{"staging", 0, true},
		{"staging2", 0, false},
		{"pre-staging", 0, false},
		{"test-foo", 1, true},
		{"test-bar", 1, true},
		{"production", 1, false},
		{"mytest-foo", 1, false},
	}

	for _, tt := range tests {
		if got := rules[tt.rule].Match(tt.env); got != tt.want {
			t.Errorf("rule %s Match(%q) = %v, want %v", rules[tt.rule], tt.env, got, tt.want)
		}
	}
}

func TestCompileIgnoreRules_String(t *testing.T) {
	rules, err := CompileIgnoreRules([]string{"staging", "/^test-.*/", "/"})
	if err != nil {
		t.Fatalf("CompileIgnoreRules() error: %v", err)
	}
	for i, want := range []string{"staging", "/^test-.*/", "/"} {
		if rules[i].String() != want {
			t.Errorf("rules[%d].String() = %q, want %q", i, rules[i].String(), want)
		}
	}
	// A lone slash or "//" is too short to be a pattern and stays literal.
	if rules[2].Pattern != nil {
		t.Error("expected '/' to be a literal rule")
	}
}

func TestCompileIgnoreRules_InvalidPattern(t *testing.T) {
	if _, err := CompileIgnoreRules([]string{"/([/"}); err == nil {
		t.Error("expected error for invalid regular expression")
	}
}
