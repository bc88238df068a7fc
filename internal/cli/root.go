// Package cli implements the elasticlm command line tool.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"elasticlm-backend/internal/client"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "elasticlm",
	Short: "elasticlm: upload documents, chat with them and search travel guides",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return ensureConfigLoaded()
	},
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $HOME/.elasticlm.yaml)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8000", "elasticlm server URL")
	rootCmd.PersistentFlags().String("token", "", "admin bearer token")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".elasticlm")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ELASTICLM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func newClient() *client.Client {
	c := client.New(viper.GetString("server"))
	c.Token = viper.GetString("token")
	return c
}
