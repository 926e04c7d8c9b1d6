package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apresai/textcast/internal/catalog"
	"github.com/apresai/textcast/internal/extract"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and reset the processing catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE:  runCatalogList,
}

var catalogResetCmd = &cobra.Command{
	Use:   "reset [id|url ...]",
	Short: "Clear entries so their sources are processed again",
	Long: `Reset drops catalog entries by ID or source URL, whatever their
status. With no arguments it drops every failed and blocked entry,
leaving succeeded ones alone.`,
	RunE: runCatalogReset,
}

var (
	flagCatalogFile      string
	flagCatalogDirectory string
)

func init() {
	pf := catalogCmd.PersistentFlags()
	pf.StringVar(&flagCatalogFile, "catalog", "", "Catalog file path (default: <directory>/"+catalog.DefaultFilename+")")
	pf.StringVarP(&flagCatalogDirectory, "directory", "d", ".", "Output directory holding the catalog")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogResetCmd)
}

func catalogFilePath() string {
	if flagCatalogFile != "" {
		return flagCatalogFile
	}
	return filepath.Join(flagCatalogDirectory, catalog.DefaultFilename)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(catalogFilePath())
	if err != nil {
		return err
	}

	entries := cat.Entries()
	if len(entries) == 0 {
		fmt.Printf("catalog %s is empty\n", cat.Path())
		return nil
	}

	fmt.Printf("\n  %-10s %-17s %-40s %s\n", "STATUS", "PROCESSED", "TITLE", "DETAIL")
	for _, e := range entries {
		detail := e.OutputPath
		if e.Status != catalog.StatusSucceeded {
			detail = e.Reason
		}
		title := e.Title
		if title == "" {
			title = e.ID
		}
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Printf("  %-10s %-17s %-40s %s\n", e.Status, e.ProcessedAt.Format("2006-01-02 15:04"), title, detail)
	}
	fmt.Printf("\n%d entries in %s\n", len(entries), cat.Path())
	return nil
}

func runCatalogReset(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(catalogFilePath())
	if err != nil {
		return err
	}

	if len(args) == 0 {
		n, err := cat.ResetFailed()
		if err != nil {
			return err
		}
		fmt.Printf("reset %d failed or blocked entries\n", n)
		return nil
	}

	reset := 0
	for _, arg := range args {
		ok, err := cat.Reset(arg)
		if err != nil {
			return err
		}
		if !ok {
			// Operators often paste the raw URL; retry with the
			// normalized form used as the catalog key.
			if item, uerr := extract.NewURLItem(arg); uerr == nil {
				ok, err = cat.Reset(item.ID)
				if err != nil {
					return err
				}
			}
		}
		if ok {
			reset++
		} else {
			fmt.Printf("no entry for %s\n", arg)
		}
	}
	fmt.Printf("reset %d of %d entries\n", reset, len(args))
	return nil
}
