package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"puppethook/internal/config"
	"puppethook/internal/security"
	"puppethook/pkg/fileutil"
	"puppethook/pkg/templates"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration",
	Long: `Write a starter puppethook.yaml with a freshly generated access token and
webhook secret. With --systemd, print a systemd unit for the server instead.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("output", "o", configFileName, "Where to write the configuration")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().String("mode", config.ModeSync, "dispatch_mode to write (sync, fork, rpc)")
	initCmd.Flags().Bool("systemd", false, "Print a systemd unit instead of writing a configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	v, err := settings(cmd)
	if err != nil {
		return err
	}

	if v.GetBool("systemd") {
		unit, err := renderServiceUnit(v.GetString("config"), v.GetString("db"))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), unit)
		return nil
	}

	output := v.GetString("output")
	if fileutil.FileExists(output) && !v.GetBool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", output)
	}

	token, err := security.GenerateToken()
	if err != nil {
		return err
	}
	secret, err := security.GenerateToken()
	if err != nil {
		return err
	}

	rendered, err := templates.RenderConfigFile(templates.ConfigData{
		AccessToken:  token,
		GitHubSecret: secret,
		DispatchMode: v.GetString("mode"),
		R10kBinary:   config.DefaultR10kBinary,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	// Refuse to write something serve would reject
	if _, err := config.Parse([]byte(rendered)); err != nil {
		return err
	}

	if err := fileutil.EnsureParentDir(output, security.PermDirectory); err != nil {
		return err
	}
	if err := os.WriteFile(output, []byte(rendered), security.PermConfigFile); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := os.Chmod(output, security.PermConfigFile); err != nil {
		return fmt.Errorf("failed to set configuration permissions: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", output)
	fmt.Fprintf(out, "Webhook secret: %s\n", secret)
	fmt.Fprintf(out, "Access token:   %s\n", token)
	return nil
}

func renderServiceUnit(configFile, dbPath string) (string, error) {
	binary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}

	if configFile == "" {
		configFile = filepath.Join(fileutil.SystemConfigDir, configFileName)
	}
	configFile, _ = filepath.Abs(configFile)
	dbPath, _ = filepath.Abs(dbPath)

	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to look up current user: %w", err)
	}
	group := current.Username
	if g, err := user.LookupGroupId(current.Gid); err == nil {
		group = g.Name
	}

	workingDir := filepath.Dir(dbPath)
	return templates.RenderSystemdService(templates.ServiceData{
		User:       current.Username,
		Group:      group,
		WorkingDir: workingDir,
		Binary:     binary,
		ConfigFile: configFile,
		LogFile:    filepath.Join(workingDir, "puppethook.log"),
		DBPath:     dbPath,
	})
}
