package protocol

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
	"github.com/keyhole-db/keyhole/utils/logger"
)

var (
	databasePath string
	tableName    string
	filtersJSON  string
	filtersPath  string
	order        string
	direction    string
	offset       int
	limit        int
	pageSize     int
	inlineMode   bool

	exportFormat string
	outputPath   string
	selectorsStr []string

	inputPath     string
	keyPath       []string
	autoIncrement bool

	commands = []*cobra.Command{}
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "keyhole",
	Short: "browse, query and mutate a client-resident object-store database",
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.SetDefault(constants.ConfigFolder, os.TempDir())
		viper.SetDefault(constants.PageSize, constants.MinPageSize)

		if databasePath != "" {
			viper.Set(constants.DatabasePath, databasePath)
			viper.Set(constants.ConfigFolder, filepath.Dir(databasePath))
		}
		if pageSize > 0 {
			viper.Set(constants.PageSize, pageSize)
		}
		if inlineMode {
			viper.Set(constants.WorkerDisabled, true)
		}

		// logger uses CONFIG_FOLDER
		logger.Init()

		if len(args) == 0 {
			return cmd.Help()
		}

		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'keyhole --help' to display usage guide", args[0])
		}

		return nil
	},
}

func CreateRootCommand() *cobra.Command {
	RootCmd.AddCommand(commands...)
	return RootCmd
}

func init() {
	RootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "path to the database file")
	RootCmd.PersistentFlags().StringVar(&tableName, "table", "", "object store to operate on")
	RootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 0, "pagination page size")
	RootCmd.PersistentFlags().BoolVar(&inlineMode, "inline", false, "run queries inline instead of on the background worker")

	commands = append(commands, discoverCmd, queryCmd, exportCmd, clearCmd, loadCmd)
}

func openDatabase() (*store.Database, error) {
	path := viper.GetString(constants.DatabasePath)
	if path == "" {
		path = databasePath
	}
	if path == "" {
		return nil, fmt.Errorf("--db not passed")
	}
	return store.Open(&store.Config{Path: path, Name: filepath.Base(path)})
}

func parseFilters() ([]types.Filter, error) {
	filters := []types.Filter{}
	switch {
	case filtersPath != "":
		if err := utils.UnmarshalFile(filtersPath, &filters); err != nil {
			return nil, err
		}
	case filtersJSON != "":
		if err := json.Unmarshal([]byte(filtersJSON), &filters); err != nil {
			return nil, fmt.Errorf("failed to parse --filters: %w", err)
		}
	}
	return filters, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
