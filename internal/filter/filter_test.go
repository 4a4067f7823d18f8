package filter

import (
	"strings"
	"testing"

	"puppethook/internal/config"
)

func newFilter(t *testing.T, events, ignore []string) *Filter {
	t.Helper()
	rules, err := config.CompileIgnoreRules(ignore)
	if err != nil {
		t.Fatalf("CompileIgnoreRules() error: %v", err)
	}
	return New(events, rules)
}

func TestIgnoreEvent_PingAlwaysIgnored(t *testing.T) {
	for _, events := range [][]string{nil, {}, {"push"}, {"ping", "push"}} {
		f := newFilter(t, events, nil)
		if ignored, _ := f.IgnoreEvent("ping"); !ignored {
			t.Errorf("ping not ignored with repository_events %v", events)
		}
	}
}

func TestIgnoreEvent_AllowList(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		event  string
		want   bool
	}{
		{"no list allows push", nil, "push", false},
		{"no list allows anything", nil, "issue_comment", false},
		{"empty list allows anything", []string{}, "release", false},
		{"listed event proceeds", []string{"push"}, "push", false},
		{"unlisted event ignored", []string{"push"}, "issue_comment", true},
		{"multiple entries", []string{"push", "release"}, "release", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFilter(t, tt.events, nil)
			if got, _ := f.IgnoreEvent(tt.event); got != tt.want {
				t.Errorf("IgnoreEvent(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestIgnoreEnvironment(t *testing.T) {
	f := newFilter(t, nil, []string{"/^test-.*/", "staging"})

	tests := []struct {
		env  string
		want bool
	}{
		{"test-foo", true},
		{"test-bar", true},
		{"production", false},
		{"staging", true},
		{"staging2", false},
		{"my-staging", false},
	}

	for _, tt := range tests {
		if got, _ := f.IgnoreEnvironment(tt.env); got != tt.want {
			t.Errorf("IgnoreEnvironment(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestIgnoreEnvironment_EmptyList(t *testing.T) {
	f := newFilter(t, nil, nil)
	if ignored, _ := f.IgnoreEnvironment("anything"); ignored {
		t.Error("expected no environment to be ignored with an empty list")
	}
}

func TestDecide(t *testing.T) {
	f := newFilter(t, []string{"push"}, []string{"/^test-.*/"})

	tests := []struct {
		name      string
		event     string
		env       string
		proceed   bool
		reasonHas string
	}{
		{"push to production", "push", "production", true, ""},
		{"ping", "ping", "production", false, "ping"},
		{"unlisted event", "issue_comment", "production", false, "repository_events"},
		{"ignored environment", "push", "test-foo", false, "ignore rule /^test-.*/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.Decide(tt.event, tt.env)
			if d.Proceed != tt.proceed || d.Ignored() == tt.proceed {
				t.Fatalf("Decide(%q, %q) = %+v, want proceed=%v", tt.event, tt.env, d, tt.proceed)
			}
			if !strings.Contains(d.Reason, tt.reasonHas) {
				t.Errorf("Reason = %q, want it to contain %q", d.Reason, tt.reasonHas)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("repository_events: [push]\nignore_environments: [staging]\n"))
	if err != nil {
		t.Fatalf("config.Parse() error: %v", err)
	}
	f, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	if d := f.Decide("push", "staging"); d.Proceed {
		t.Error("expected staging to be ignored")
	}
	if d := f.Decide("push", "production"); !d.Proceed {
		t.Errorf("expected production to proceed: %s", d.Reason)
	}
}
