package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logos/internal/driver"
	"logos/internal/project"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis result cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop all cached analysis results",
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := project.Discover(".")
		if err != nil {
			return err
		}
		cache, err := driver.OpenDiskCache("logos", manifest.Config.Cache.Dir)
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleaned")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
}
