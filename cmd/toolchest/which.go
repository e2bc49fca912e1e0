package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolchest-dev/toolchest/internal/cache"
	"github.com/toolchest-dev/toolchest/internal/installer"
	"github.com/toolchest-dev/toolchest/internal/platform"
)

func newWhichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "which <tool>[@<version>]",
		Short: "Print the cached path of an installed tool, or its cached versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			info, err := platform.NewDetector().Detect(cmd.Context())
			if err != nil {
				return err
			}
			c := cache.New(cfg.CacheDir)

			// A bare tool name lists every cached version instead.
			if !strings.Contains(args[0], "@") {
				versions, err := c.Versions(args[0], info.Arch)
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					return fmt.Errorf("no cached versions of %s for %s", args[0], info.Arch)
				}
				for _, version := range versions {
					fmt.Println(version)
				}
				return nil
			}

			name, version, err := splitToolArg(args[0])
			if err != nil {
				return err
			}

			id := installer.Identity{Name: name, Version: version, Arch: info.Arch}
			path, ok, err := c.Find(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not cached", id)
			}

			fmt.Println(path)
			return nil
		},
	}
}
