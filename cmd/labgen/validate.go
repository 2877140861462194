package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/content"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/output"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Check persisted labs against the lab invariants",
		Long:  `Each PATH is a lab JSON file or a directory searched for lab_content.json files.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed, err := validatePaths(cmd.OutOrStdout(), args)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d lab file(s) failed validation", failed)
			}
			return nil
		},
	}
}

func validatePaths(w io.Writer, paths []string) (int, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && d.Name() == output.ContentFileName {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	failed := 0
	for _, path := range files {
		raw, err := output.ReadLab(path)
		if err == nil {
			_, err = content.Parse(string(raw))
		}
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s\n", path)
			for _, is := range content.Issues(err) {
				fmt.Fprintf(w, "  %s: %s (%s)\n", is.Field, is.Detail, is.Rule)
			}
			if len(content.Issues(err)) == 0 {
				fmt.Fprintf(w, "  %v\n", err)
			}
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", path)
	}
	fmt.Fprintf(w, "%d file(s) checked, %d failed\n", len(files), failed)
	return failed, nil
}
