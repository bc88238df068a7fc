package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"elasticlm-backend/internal/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Upload files and wait for their summaries",
	Long: `Uploads each file as an independent task, then polls its status until
the server reports it done or failed. Files still processing when polling
gives up are reported as pending.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pollOptions(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var mu sync.Mutex
		list := newClient().UploadAll(cmd.Context(), args, opts, func(st client.FileStatus) {
			if st.State == client.StateUploading {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			printStatus(out, st)
		})

		failed := 0
		for _, st := range list.Snapshot() {
			if st.State == client.StateError {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

var uploadYouTubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Ingest the transcript of a YouTube video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pollOptions(cmd)
		if err != nil {
			return err
		}
		c := newClient()
		accepted, err := c.UploadYouTube(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		st := client.FileStatus{Name: accepted.FileName, DocumentID: accepted.DocumentID.String(), State: client.StateSuccess}
		summary, err := c.WaitForDocument(cmd.Context(), accepted.FileName, st.DocumentID, opts)
		switch {
		case err == nil:
			st.Summary = summary
		case errors.Is(err, client.ErrStillPending):
			st.State = client.StatePending
		default:
			st.State, st.Error = client.StateError, err.Error()
		}
		printStatus(cmd.OutOrStdout(), st)
		if st.State == client.StateError {
			return err
		}
		return nil
	},
}

func addPollFlags(cmd *cobra.Command) {
	cmd.Flags().Int("attempts", client.DefaultPollOptions.Attempts, "status polls per file")
	cmd.Flags().Duration("interval", client.DefaultPollOptions.Interval, "delay between status polls")
}

func pollOptions(cmd *cobra.Command) (client.PollOptions, error) {
	attempts, err := cmd.Flags().GetInt("attempts")
	if err != nil {
		return client.PollOptions{}, err
	}
	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return client.PollOptions{}, err
	}
	return client.PollOptions{Attempts: attempts, Interval: interval}, nil
}

func init() {
	addPollFlags(uploadCmd)
	addPollFlags(uploadYouTubeCmd)
	uploadCmd.AddCommand(uploadYouTubeCmd)
	rootCmd.AddCommand(uploadCmd)
}
