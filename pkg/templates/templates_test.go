package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// chdirTemp switches to an empty temporary directory for the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
	return tmpDir
}

func TestGetTemplate_Embedded(t *testing.T) {
	chdirTemp(t)

	for _, name := range ListTemplates() {
		content, err := GetTemplate(name)
		if err != nil {
			t.Errorf("GetTemplate(%q) error: %v", name, err)
			continue
		}
		if content == "" {
			t.Errorf("GetTemplate(%q) returned empty content", name)
		}
	}
}

func TestGetTemplate_Override(t *testing.T) {
	tmpDir := chdirTemp(t)

	templatesDir := filepath.Join(tmpDir, "templates")
	if err := os.MkdirAll(templatesDir, 0755); err != nil {
		t.Fatalf("Failed to create templates directory: %v", err)
	}
	override := "[Service]\nUser={{USER}}\n"
	if err := os.WriteFile(filepath.Join(templatesDir, "systemd-service.template"), []byte(override), 0644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}

	content, err := GetTemplate(SystemdService)
	if err != nil {
		t.Fatalf("GetTemplate() error: %v", err)
	}
	if content != override {
		t.Errorf("Expected local override, got %q", content)
	}
}

func TestGetTemplate_Unknown(t *testing.T) {
	if _, err := GetTemplate("nginx-site"); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestRender_MissingValue(t *testing.T) {
	chdirTemp(t)

	_, err := Render(SystemdService, TemplateData{"USER": "puppet"})
	if err == nil || !strings.Contains(err.Error(), "no value for") {
		t.Errorf("Expected missing value error, got %v", err)
	}
}

func TestRenderConfigFile(t *testing.T) {
	chdirTemp(t)

	rendered, err := RenderConfigFile(ConfigData{
		AccessToken:  "token-value",
		GitHubSecret: "secret-value",
		DispatchMode: "sync",
		R10kBinary:   "/opt/puppetlabs/puppet/bin/r10k",
		GeneratedAt:  "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("RenderConfigFile() error: %v", err)
	}

	// The result must be valid YAML carrying the substituted values
	var parsed map[string]interface{}
	if err := yaml.Unmarshal([]byte(rendered), &parsed); err != nil {
		t.Fatalf("Rendered config is not valid YAML: %v", err)
	}
	if parsed["access_token"] != "token-value" || parsed["github_secret"] != "secret-value" {
		t.Errorf("Credentials not substituted: %v", parsed)
	}
	if parsed["dispatch_mode"] != "sync" {
		t.Errorf("Expected dispatch_mode sync, got %v", parsed["dispatch_mode"])
	}
}

func TestRenderSystemdService(t *testing.T) {
	chdirTemp(t)

	rendered, err := RenderSystemdService(ServiceData{
		User:       "puppet",
		Group:      "puppet",
		WorkingDir: "/var/lib/puppethook",
		Binary:     "/usr/local/bin/puppethook",
		ConfigFile: "/etc/puppethook/puppethook.yaml",
		LogFile:    "/var/log/puppethook/puppethook.log",
		DBPath:     "/var/lib/puppethook/puppethook.db",
	})
	if err != nil {
		t.Fatalf("RenderSystemdService() error: %v", err)
	}

	for _, want := range []string{
		"User=puppet",
		"ExecStart=/usr/local/bin/puppethook serve",
		"Environment=PUPPETHOOK_CONFIG=/etc/puppethook/puppethook.yaml",
		"Environment=PUPPETHOOK_DB=/var/lib/puppethook/puppethook.db",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Expected rendered unit to contain %q", want)
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{ConfigFile, true},
		{SystemdService, true},
		{"nginx-site", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateTemplate(tt.name); got != tt.valid {
			t.Errorf("ValidateTemplate(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}
