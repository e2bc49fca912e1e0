package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toolchest-dev/toolchest/internal/cache"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached tool installations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			entries, err := cache.New(cfg.CacheDir).List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no tools cached")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOOL\tVERSION\tARCH\tINSTALLED\tPATH")
			for _, e := range entries {
				installed := ""
				if !e.Metadata.InstalledAt.IsZero() {
					installed = e.Metadata.InstalledAt.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Identity.Name, e.Identity.Version, e.Identity.Arch, installed, e.Path)
			}
			return w.Flush()
		},
	}
}
