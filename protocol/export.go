package protocol

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/engine"
	"github.com/keyhole-db/keyhole/export"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
)

// exportCmd writes the records matching a filter set (or an explicit
// selection) to a file. The export sees the same logical set a query with
// those filters would, without pagination.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "export matching records to json, csv or yaml",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if tableName == "" {
			return fmt.Errorf("--table not passed")
		}
		if outputPath == "" {
			return fmt.Errorf("--output not passed")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		table, err := db.Table(tableName)
		if err != nil {
			return err
		}

		schema, err := engine.Discover(cmd.Context(), db, tableName, viper.GetInt(constants.PageSize))
		if err != nil {
			return err
		}

		collection, err := selectedCollection(table)
		if err != nil {
			return err
		}

		out, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}

		exporter, err := export.NewExporter(export.Format(exportFormat), out, export.ColumnsOf(schema))
		if err != nil {
			out.Close()
			return err
		}

		start := time.Now()
		exported, err := export.Collection(cmd.Context(), collection, exporter)
		// close both ends even on a failed drain, keeping every close error
		closeErr := utils.ErrExecSequential(exporter.Close, out.Close)
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		logger.Infof("exported %d records from %s to %s in %s", exported, tableName, outputPath, time.Since(start).String())
		return nil
	},
}

// selectedCollection materializes either the explicit row selection or the
// filter set.
func selectedCollection(table *store.Table) (*store.Collection, error) {
	if len(selectorsStr) > 0 {
		return engine.MaterializeFromSelection(table, engine.RowSelectorFields(table), selectorsStr), nil
	}
	filters, err := parseFilters()
	if err != nil {
		return nil, err
	}
	return engine.MaterializeFromFilters(table, filters), nil
}

func init() {
	exportCmd.Flags().StringVar(&filtersJSON, "filters", "", "filter set as a JSON array")
	exportCmd.Flags().StringVar(&filtersPath, "filters-file", "", "filter set from a JSON file")
	exportCmd.Flags().StringSliceVar(&selectorsStr, "selectors", nil, "explicit row selectors to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json, csv or yaml")
	exportCmd.Flags().StringVar(&outputPath, "output", "", "output file path")
}
