package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fentz26/archivist/internal/archive"
	"github.com/fentz26/archivist/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list [folder]",
	Short: "Show the entries a run would classify",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	source, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	// Enumeration needs no classifier.
	engine := archive.New(nil, archive.Config{}, archive.WithLogger(logger))
	entries, err := engine.Enumerate(source)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries to process.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tSIZE\tMODIFIED")
	for _, e := range entries {
		size, modified := describeEntry(e)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Kind.Label(), e.Name, size, modified)
	}
	w.Flush()

	fmt.Printf("\n%d entries in %s\n", len(entries), source)
	return nil
}

// describeEntry returns a human size and age for e. Directory sizes are
// the sum of the regular files beneath them.
func describeEntry(e *models.Entry) (string, string) {
	info, err := os.Lstat(e.SourcePath)
	if err != nil {
		return "?", "?"
	}
	size := info.Size()
	if info.IsDir() {
		size = 0
		_ = filepath.WalkDir(e.SourcePath, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || !d.Type().IsRegular() {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				size += fi.Size()
			}
			return nil
		})
	}
	return humanize.Bytes(uint64(size)), humanize.Time(info.ModTime())
}
