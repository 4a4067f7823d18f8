package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Template names
const (
	ConfigFile     = "config"
	SystemdService = "systemd-service"
)

//go:embed defaults/*.template
var defaults embed.FS

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the search paths for templates
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "puppethook", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are loaded in the following order:
// 1. ./templates/<name>.template
// 2. ./config/templates/<name>.template
// 3. /etc/puppethook/templates/<name>.template
// 4. the copy built into the binary
func GetTemplate(name string) (string, error) {
	// Validate template name
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := defaults.ReadFile("defaults/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("template file not found: %s", name)
	}
	return string(content), nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution; placeholders
// without a value are an error.
//
// Example:
//
//	data := TemplateData{
//	    "USER": "puppet",
//	    "GROUP": "puppet",
//	}
//	rendered, err := Render(SystemdService, data)
func Render(templateName string, data TemplateData) (string, error) {
	tmplContent, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	// Replace placeholders
	rendered := tmplContent
	for key, value := range data {
		placeholder := fmt.Sprintf("{{%s}}", key)
		rendered = strings.ReplaceAll(rendered, placeholder, value)
	}

	if start := strings.Index(rendered, "{{"); start >= 0 {
		end := strings.Index(rendered[start:], "}}")
		if end > 0 {
			return "", fmt.Errorf("template %s: no value for %s", templateName, rendered[start:start+end+2])
		}
	}

	return rendered, nil
}

// ConfigData are the values substituted into the starter configuration.
type ConfigData struct {
	AccessToken  string
	GitHubSecret string
	DispatchMode string
	R10kBinary   string
	GeneratedAt  string
}

// RenderConfigFile renders the starter puppethook.yaml.
func RenderConfigFile(d ConfigData) (string, error) {
	return Render(ConfigFile, TemplateData{
		"ACCESS_TOKEN":  d.AccessToken,
		"GITHUB_SECRET": d.GitHubSecret,
		"DISPATCH_MODE": d.DispatchMode,
		"R10K_BINARY":   d.R10kBinary,
		"GENERATED_AT":  d.GeneratedAt,
	})
}

// ServiceData are the values substituted into the systemd unit.
type ServiceData struct {
	User       string
	Group      string
	WorkingDir string
	Binary     string
	ConfigFile string
	LogFile    string
	DBPath     string
}

// RenderSystemdService renders the systemd service template.
func RenderSystemdService(d ServiceData) (string, error) {
	return Render(SystemdService, TemplateData{
		"USER":        d.User,
		"GROUP":       d.Group,
		"WORKING_DIR": d.WorkingDir,
		"BINARY":      d.Binary,
		"CONFIG_FILE": d.ConfigFile,
		"LOG_FILE":    d.LogFile,
		"DB_PATH":     d.DBPath,
	})
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		ConfigFile,
		SystemdService,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	return slices.Contains(ListTemplates(), name)
}
