package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"elasticlm-backend/internal/client"
)

var regulationsCmd = &cobra.Command{
	Use:   "regulations [question]",
	Short: "Chat about city regulations",
	Long: "Asks the question given as arguments, or reads one question per line from stdin.\n" +
		"Questions read from stdin share one conversation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newClient().DialRegulations(cmd.Context())
		if err != nil {
			return err
		}
		defer session.Close()

		out := cmd.OutOrStdout()
		if len(args) > 0 {
			return askRegulation(cmd, session, strings.Join(args, " "))
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, headerText("> "))
		for scanner.Scan() {
			if q := strings.TrimSpace(scanner.Text()); q != "" {
				if err := askRegulation(cmd, session, q); err != nil {
					return err
				}
			}
			fmt.Fprint(out, headerText("> "))
		}
		fmt.Fprintln(out)
		return scanner.Err()
	},
}

// askRegulation prints the answer. Reply errors are printed and the session
// goes on; transport errors end it.
func askRegulation(cmd *cobra.Command, session *client.RegulationsSession, question string) error {
	answer, err := session.Ask(question)
	var replyErr *client.ReplyError
	switch {
	case errors.As(err, &replyErr):
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", failedText("✗"), replyErr.Text)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func init() {
	rootCmd.AddCommand(regulationsCmd)
}
