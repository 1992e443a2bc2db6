package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yangwenmai/latentvault/internal/vault"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every vault record as a JSON array",
	Long: `Export writes the whole vault in storage order. Without --out the
document goes to stdout; --out . writes latent-vault-export-YYYY-MM-DD.json
in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge an exported JSON array into the vault",
	Long: `Import overwrites records with the same id and adds the rest. A
malformed document writes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file ('.' for the dated default name)")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	svc, closeDB, err := openVault()
	if err != nil {
		return err
	}
	defer closeDB()

	path := exportOut
	if path == "." {
		path = vault.ExportFilename(time.Now())
	}
	if path == "" {
		n, err := svc.Export(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		logger.Debug("export done", zap.Int("records", n))
		return nil
	}

	n, err := exportToFile(cmd, svc, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d records exported to %s\n", n, path)
	logger.Debug("export done", zap.Int("records", n), zap.String("out", path))
	return nil
}

// exportToFile writes the export to path. The file is closed before
// returning so that a failed flush is reported instead of a count.
func exportToFile(cmd *cobra.Command, svc *vault.Service, path string) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err = svc.Export(cmd.Context(), f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	svc, closeDB, err := openVault()
	if err != nil {
		return err
	}
	defer closeDB()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	res, err := svc.Import(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message())
	for _, fail := range res.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", fail)
	}
	logger.Debug("import done", zap.Int("merged", res.Merged), zap.Int("failed", len(res.Failed)))
	return nil
}
