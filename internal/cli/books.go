package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books <query>",
	Short: "Ask the librarian about books",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, _ := cmd.Flags().GetStringArray("history")
		resp, err := newClient().BooksChat(cmd.Context(), strings.Join(args, " "), history)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	booksCmd.Flags().StringArray("history", nil, "earlier conversation lines, oldest first")
	rootCmd.AddCommand(booksCmd)
}
