package main

import (
	"fmt"
	"os"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/fixtures"
	"github.com/spf13/cobra"
)

var (
	ingredientsFile string
	tagsFile        string
)

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients",
	Short: "Import ingredients from a CSV file",
	Long:  `Reads name,measurement_unit rows and inserts the ones not already present`,
	RunE:  runIngredients,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Import tags from a YAML file",
	Long:  `Creates tags or updates the name and color of tags with the same slug`,
	RunE:  runTags,
}

func init() {
	ingredientsCmd.Flags().StringVarP(&ingredientsFile, "file", "f", "data/ingredients.csv", "CSV file to import")
	tagsCmd.Flags().StringVarP(&tagsFile, "file", "f", "data/tags.yaml", "YAML file to import")
}

func runIngredients(cmd *cobra.Command, args []string) error {
	f, err := os.Open(ingredientsFile)
	if err != nil {
		return fmt.Errorf("failed to open ingredients file: %w", err)
	}
	defer f.Close()

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	n, err := fixtures.LoadIngredients(cmd.Context(), db, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d ingredients\n", n)
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	f, err := os.Open(tagsFile)
	if err != nil {
		return fmt.Errorf("failed to open tags file: %w", err)
	}
	defer f.Close()

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	n, err := fixtures.LoadTags(cmd.Context(), db, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tags\n", n)
	return nil
}
