package protocol

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
)

// loadCmd imports a JSON array of records into a store, creating the store
// first when it does not exist yet.
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "import records from a JSON file into one store",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if tableName == "" {
			return fmt.Errorf("--table not passed")
		}
		if inputPath == "" {
			return fmt.Errorf("--input not passed")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		records := []types.Record{}
		if err := utils.UnmarshalFile(inputPath, &records); err != nil {
			return err
		}

		table, err := db.Table(tableName)
		if err != nil {
			table, err = db.CreateTable(tableName, keyPath, autoIncrement, nil)
			if err != nil {
				return err
			}
			logger.Infof("created store %s", tableName)
		}

		start := time.Now()
		for idx, record := range records {
			if _, err := table.Put(cmd.Context(), nil, record); err != nil {
				return fmt.Errorf("failed to load record %d: %w", idx, err)
			}
		}
		logger.Infof("loaded %d records into %s in %s", len(records), tableName, time.Since(start).String())
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&inputPath, "input", "", "JSON file holding an array of records")
	loadCmd.Flags().StringSliceVar(&keyPath, "key-path", nil, "key path components when creating the store; empty declares an unnamed key")
	loadCmd.Flags().BoolVar(&autoIncrement, "auto-increment", true, "auto-increment keys when creating an unnamed-key store")
}
