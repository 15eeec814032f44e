package main

import (
	"fmt"
	"os"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/fixtures"
	"github.com/spf13/cobra"
)

var superuser fixtures.SuperuserInput

var superuserCmd = &cobra.Command{
	Use:   "superuser",
	Short: "Create or promote a staff account",
	Long: `Creates a staff user with the given email, or promotes and resets the password
of the existing one. The password may be passed through FOODGRAM_SUPERUSER_PASSWORD.`,
	RunE: runSuperuser,
}

var pruneTokensCmd = &cobra.Command{
	Use:   "prune-tokens",
	Short: "Delete expired access and refresh tokens",
	RunE:  runPruneTokens,
}

func init() {
	superuserCmd.Flags().StringVar(&superuser.Email, "email", "", "Login email (required)")
	superuserCmd.Flags().StringVar(&superuser.Username, "username", "admin", "Username")
	superuserCmd.Flags().StringVar(&superuser.FirstName, "first-name", "", "First name")
	superuserCmd.Flags().StringVar(&superuser.LastName, "last-name", "", "Last name")
	superuserCmd.Flags().StringVar(&superuser.Password, "password", "", "Password")

	superuserCmd.MarkFlagRequired("email")
}

func runSuperuser(cmd *cobra.Command, args []string) error {
	in := superuser
	if in.Password == "" {
		in.Password = os.Getenv("FOODGRAM_SUPERUSER_PASSWORD")
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	user, err := fixtures.EnsureSuperuser(cmd.Context(), db, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Staff user %s (id %d) is ready\n", user.Email, user.ID)
	return nil
}

func runPruneTokens(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	removed, err := auth.NewGormTokenStore(db).RemoveExpired(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired tokens\n", removed)
	return nil
}
