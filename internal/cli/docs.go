package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Group commands for managing uploaded documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListDocuments(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCHUNKS\tUPLOADED")
		for _, d := range list.Documents {
			status := d.Status
			switch status {
			case "done":
				status = successText(status)
			case "error":
				status = failedText(status)
			default:
				status = pendingText(status)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.FileName, status, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its indexed content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().DeleteDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successText("✓"), msg)
		return nil
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}
