package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"elasticlm-backend/internal/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask a question about the uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, _ := cmd.Flags().GetStringSlice("source")
		prompt, _ := cmd.Flags().GetString("prompt")
		caching, _ := cmd.Flags().GetBool("cache")
		ignoreCache, _ := cmd.Flags().GetBool("ignore-cache")
		threshold, _ := cmd.Flags().GetInt("similarity")

		req := &models.ChatRequest{
			Messages:            []models.ChatMessage{{Role: "human", Content: strings.Join(args, " ")}},
			CustomPrompt:        prompt,
			EnableCaching:       caching,
			SimilarityThreshold: threshold,
			IgnoreCache:         ignoreCache,
			SelectedSources:     sources,
		}

		out := cmd.OutOrStdout()
		_, err := newClient().Chat(cmd.Context(), req, func(chunk string) error {
			_, err := fmt.Fprint(out, chunk)
			return err
		})
		fmt.Fprintln(out)
		return err
	},
}

func init() {
	chatCmd.Flags().StringSliceP("source", "s", nil, "limit the answer to these uploaded file names")
	chatCmd.Flags().String("prompt", "", "custom instructions for the answer")
	chatCmd.Flags().Bool("cache", false, "use the answer cache")
	chatCmd.Flags().Bool("ignore-cache", false, "skip cache lookup but store the answer")
	chatCmd.Flags().Int("similarity", 80, "cache similarity threshold (0-100)")
	rootCmd.AddCommand(chatCmd)
}
