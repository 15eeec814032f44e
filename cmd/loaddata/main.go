// Command loaddata imports reference data and bootstraps accounts.
package main

import (
	"fmt"
	"os"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/config"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "loaddata",
	Short: "Foodgram data management",
	Long: `Loads ingredients and tags, creates staff accounts and prunes expired tokens.

The database is configured through the same environment variables (or .env file)
as the API server.`,
	SilenceUsage: true,
}

// openDatabase is replaced in tests
var openDatabase = func() (*gorm.DB, error) {
	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.InitDatabase(conf.DatabaseConfig())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(ingredientsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(superuserCmd)
	rootCmd.AddCommand(pruneTokensCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
