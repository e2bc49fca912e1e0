package main

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/toolchest-dev/toolchest/internal/cache"
	"github.com/toolchest-dev/toolchest/internal/installer"
	"github.com/toolchest-dev/toolchest/internal/manifest"
	"github.com/toolchest-dev/toolchest/internal/platform"
	"github.com/toolchest-dev/toolchest/internal/release"
	"github.com/toolchest-dev/toolchest/internal/verify"
)

func newInstallCmd() *cobra.Command {
	var (
		dirFlag      string
		manifestFlag string
		tokenFlag    string
	)

	cmd := &cobra.Command{
		Use:   "install <tool>@<version>",
		Short: "Download and install a tool at an exact version",
		Long: "Install resolves the tool's release asset for the current platform, " +
			"downloads and unpacks it, and places it in the shared version cache. " +
			"Repeated installs of the same tool, version, and architecture are " +
			"served from the cache without network access.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if manifestFlag != "" {
				cfg.ManifestPath = manifestFlag
			}
			if tokenFlag != "" {
				cfg.Token = tokenFlag
			}
			if dirFlag != "" {
				cfg.InstallDir = dirFlag
			}
			return runInstall(cmd, cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&dirFlag, "dir", "", "install into this directory instead of the shared cache")
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "path to the tool manifest (tools.lua)")
	cmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub token for private release assets")

	return cmd
}

func runInstall(cmd *cobra.Command, cfg runtimeConfig, arg string) error {
	ctx := cmd.Context()

	name, version, err := splitToolArg(arg)
	if err != nil {
		return err
	}

	detector := platform.NewDetector()
	info, err := detector.Detect(ctx)
	if err != nil {
		return err
	}

	m, err := manifest.NewParser(platform.Static(info)).ParseFile(ctx, cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", cfg.ManifestPath, err)
	}

	tool, ok := m.Lookup(name)
	if !ok {
		return fmt.Errorf("tool %q not found in manifest %s", name, cfg.ManifestPath)
	}

	spec, err := tool.Resolve(version, info)
	if err != nil {
		return err
	}

	id := installer.Identity{Name: name, Version: version, Arch: info.Arch}
	placement := installer.DecidePlacement(cfg.Isolated, cfg.InstallDir, defaultFixedDir)

	engine := installer.NewEngine(cache.New(cfg.CacheDir),
		installer.WithResolver(release.NewGitHubResolver()),
		installer.WithVerifier(verify.NewVerifier(cfg.KeyringDir)),
		installer.WithScratchRoot(cfg.ScratchDir),
		installer.WithLogger(log.Default()),
	)

	credential := ""
	if cfg.Token != "" && strings.Contains(spec.URL, "github.com") {
		credential = cfg.Token
	}

	path, err := engine.Resolve(ctx, id, spec, placement, credential)
	if err != nil {
		return err
	}

	log.Info("installed", "tool", name, "version", version, "arch", info.Arch)
	fmt.Println(path)
	return nil
}

// splitToolArg parses "name@version" and rejects anything but an exact
// version: ranges and floating tags would defeat the cache key.
func splitToolArg(arg string) (name, version string, err error) {
	name, version, found := strings.Cut(arg, "@")
	if !found || name == "" || version == "" {
		return "", "", fmt.Errorf("expected <tool>@<version>, got %q", arg)
	}
	if version == "latest" || strings.ContainsAny(version, "*^~<>= ") {
		return "", "", fmt.Errorf("version %q is not exact; pin an exact version", version)
	}
	if _, perr := semver.NewVersion(strings.TrimPrefix(version, "v")); perr != nil {
		log.Debug("version is not semver, using verbatim", "version", version)
	}
	return name, version, nil
}
