package protocol

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyhole-db/keyhole/channel"
	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/logger"
)

// queryCmd runs one filtered, ordered, paginated read through the execution
// channel, using the two-phase protocol: a discovery pass first, then the
// authoritative load.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "run a filtered, paginated query against one store",
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

		filters, err := parseFilters()
		if err != nil {
			return err
		}

		ch := channel.New(db)
		defer ch.Close()

		session, err := channel.NewSession(ch, db, tableName, viper.GetInt(constants.PageSize))
		if err != nil {
			return err
		}

		start := time.Now()
		if _, err := session.Discover(cmd.Context()); err != nil {
			return err
		}

		result, err := session.LoadAuthoritative(cmd.Context(), filters, order, types.Direction(direction), offset, limit)
		if err != nil {
			return err
		}
		logger.Infof("query on %s returned %d of %d records in %s", tableName, len(result.Data), result.Total, time.Since(start).String())
		return printJSON(result)
	},
}

func init() {
	queryCmd.Flags().StringVar(&filtersJSON, "filters", "", "filter set as a JSON array")
	queryCmd.Flags().StringVar(&filtersPath, "filters-file", "", "filter set from a JSON file")
	queryCmd.Flags().StringVar(&order, "order", "", "field to order by")
	queryCmd.Flags().StringVar(&direction, "direction", "asc", "sort direction (asc or desc)")
	queryCmd.Flags().IntVar(&offset, "offset", 1, "1-based offset into the match set")
	queryCmd.Flags().IntVar(&limit, "limit", 0, "page size, 0 uses the configured default")
}
