package protocol

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyhole-db/keyhole/utils/logger"
)

// clearCmd bulk-deletes the records matching a filter set or an explicit
// selection. The deletion sees the same logical set the user was looking at,
// not a stale page.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "delete matching records from one store",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if tableName == "" {
			return fmt.Errorf("--table not passed")
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

		collection, err := selectedCollection(table)
		if err != nil {
			return err
		}

		start := time.Now()
		deleted, err := collection.Delete(cmd.Context())
		if err != nil {
			return err
		}
		logger.Infof("deleted %d records from %s in %s", deleted, tableName, time.Since(start).String())
		return nil
	},
}

func init() {
	clearCmd.Flags().StringVar(&filtersJSON, "filters", "", "filter set as a JSON array")
	clearCmd.Flags().StringVar(&filtersPath, "filters-file", "", "filter set from a JSON file")
	clearCmd.Flags().StringSliceVar(&selectorsStr, "selectors", nil, "explicit row selectors to delete")
}
