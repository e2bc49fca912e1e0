// Command toolchest installs pinned CLI tools: it resolves a tool's release
// asset for the current platform, downloads and unpacks it, and places it in
// a shared version cache (or a fixed directory in isolated environments).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "toolchest",
		Short:         "Install pinned CLI tools from release archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newWhichCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolchest version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("toolchest %s\n", Version)
		},
	}
}

// runtimeConfig holds every environment-derived setting, resolved once at
// startup so nothing re-reads the environment mid-run.
type runtimeConfig struct {
	CacheDir     string
	InstallDir   string
	ScratchDir   string
	KeyringDir   string
	ManifestPath string
	Token        string
	Isolated     bool
}

const defaultFixedDir = "/opt/toolchest"

// loadConfig reads TOOLCHEST_* environment variables, defaulting paths under
// the user's cache and config directories.
func loadConfig() runtimeConfig {
	v := viper.New()
	v.SetEnvPrefix("TOOLCHEST")
	v.AutomaticEnv()

	cfg := runtimeConfig{
		CacheDir:     v.GetString("CACHE_DIR"),
		InstallDir:   v.GetString("INSTALL_DIR"),
		ScratchDir:   v.GetString("SCRATCH_DIR"),
		KeyringDir:   v.GetString("KEYRING_DIR"),
		ManifestPath: v.GetString("MANIFEST"),
		Token:        v.GetString("GITHUB_TOKEN"),
		Isolated:     v.GetBool("ISOLATED"),
	}

	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}

	if cfg.CacheDir == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			cfg.CacheDir = filepath.Join(userCache, "toolchest", "tools")
		} else {
			cfg.CacheDir = filepath.Join(os.TempDir(), "toolchest", "tools")
		}
	}

	if userConfig, err := os.UserConfigDir(); err == nil {
		if cfg.KeyringDir == "" {
			cfg.KeyringDir = filepath.Join(userConfig, "toolchest", "keyrings")
		}
		if cfg.ManifestPath == "" {
			cfg.ManifestPath = filepath.Join(userConfig, "toolchest", "tools.lua")
		}
	}

	return cfg
}
