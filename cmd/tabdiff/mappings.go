package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/schema"
)

var (
	mappingsSeedFile  string
	mappingsJSON      bool
	mappingsExportOut string
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manage the field mapping catalog",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored field mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) error {
			mappings, err := svc.ListMappings(cmd.Context())
			if err != nil {
				return err
			}
			if mappingsJSON {
				return renderJSON(cmd.OutOrStdout(), mappings)
			}
			renderMappings(cmd.OutOrStdout(), mappings)
			return nil
		})
	},
}

var mappingsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add missing field types and variations from a catalog file",
	Long: `Seed the store from a YAML catalog (--file, CATALOG_SEED_PATH, or the
built-in catalog). Existing mappings only gain variations; nothing is removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := mappingsSeedFile
		if path == "" {
			path = cfg.Catalog.SeedPath
		}
		cat, err := core.SeedCatalog(path)
		if err != nil {
			return err
		}

		return withService(cmd.Context(), func(svc *core.Service) error {
			res, err := svc.SeedMappings(cmd.Context(), cat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d field types\n", res.Created, res.Updated)
			return nil
		})
	},
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the active catalog as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) (err error) {
			cat, err := svc.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			if mappingsExportOut == "" {
				return schema.WriteCatalogYAML(cmd.OutOrStdout(), cat)
			}

			f, err := os.Create(mappingsExportOut)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			return schema.WriteCatalogYAML(f, cat)
		})
	},
}

func init() {
	mappingsSeedCmd.Flags().StringVarP(&mappingsSeedFile, "file", "f", "", "YAML catalog to seed from")
	mappingsListCmd.Flags().BoolVar(&mappingsJSON, "json", false, "print mappings as JSON")
	mappingsExportCmd.Flags().StringVarP(&mappingsExportOut, "out", "o", "", "output file (default: stdout)")

	mappingsCmd.AddCommand(mappingsListCmd, mappingsSeedCmd, mappingsExportCmd)
}
