package protocol

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/engine"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
)

// discoverCmd runs the firstrun pass: on one store it prints the key schema,
// declared indexes and the column set resolved from sampled records; with no
// --table it discovers every store in the database.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "learn the effective columns of one store or all of them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if tableName == "" {
			tables, err := db.Tables()
			if err != nil {
				return err
			}

			schemas := make([]*types.TableSchema, len(tables))
			if err := utils.Concurrent(cmd.Context(), tables, 4, func(ctx context.Context, table string, idx int) error {
				schema, err := engine.Discover(ctx, db, table, viper.GetInt(constants.PageSize))
				if err != nil {
					return err
				}
				schemas[idx] = schema
				return nil
			}); err != nil {
				return err
			}
			return printJSON(schemas)
		}

		start := time.Now()
		schema, err := engine.Discover(cmd.Context(), db, tableName, viper.GetInt(constants.PageSize))
		if err != nil {
			return err
		}
		logger.Infof("discovered %s in %s", tableName, time.Since(start).String())
		return printJSON(schema)
	},
}
