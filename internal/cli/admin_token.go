package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"elasticlm-backend/internal/middleware"
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Mint an admin token from the server secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString("secret")
		if secret == "" {
			return errors.New("secret is required (--secret or ELASTICLM_SECRET)")
		}
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := middleware.GenerateAdminToken(secret, subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	adminTokenCmd.Flags().String("secret", "", "server SECRET_KEY")
	adminTokenCmd.Flags().String("subject", "cli", "token subject")
	adminTokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = viper.BindPFlag("secret", adminTokenCmd.Flags().Lookup("secret"))
	rootCmd.AddCommand(adminTokenCmd)
}
