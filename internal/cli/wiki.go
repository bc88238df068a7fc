package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"elasticlm-backend/internal/models"
)

var wikiCmd = &cobra.Command{
	Use:   "wiki",
	Short: "Search a travel-guide index on your own cluster",
}

var wikiSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid semantic and keyword search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapOnly, _ := cmd.Flags().GetBool("map-only")
		hits, err := newClient().WikiSearch(cmd.Context(), &models.WikiSearchRequest{
			Query:           strings.Join(args, " "),
			URL:             viper.GetString("es-url"),
			APIKey:          viper.GetString("es-api-key"),
			MapLocationOnly: mapOnly,
		})
		if err != nil {
			return err
		}
		printHits(cmd, hits)
		return nil
	},
}

var wikiGeoCmd = &cobra.Command{
	Use:   "geo <minLng> <minLat> <maxLng> <maxLat>",
	Short: "Articles with coordinates inside a bounding box",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		bbox := make([]float64, 4)
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid coordinate %q: %w", a, err)
			}
			bbox[i] = v
		}

		hits, err := newClient().GeoSearch(cmd.Context(), &models.GeoSearchRequest{
			BBox:   bbox,
			URL:    viper.GetString("es-url"),
			APIKey: viper.GetString("es-api-key"),
		})
		if err != nil {
			return err
		}
		printHits(cmd, hits)
		return nil
	},
}

var wikiValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the cluster URL and API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().ValidateElasticsearch(cmd.Context(), &models.ValidateRequest{
			URL:    viper.GetString("es-url"),
			APIKey: viper.GetString("es-api-key"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successText("✓"), resp.Message)
		return printJSON(cmd.OutOrStdout(), resp.Data)
	},
}

type wikiHit struct {
	Fields struct {
		Title       []string `json:"title"`
		OpeningText []string `json:"opening_text"`
	} `json:"fields"`
}

func printHits(cmd *cobra.Command, hits []json.RawMessage) {
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}
	for i, raw := range hits {
		var h wikiHit
		if err := json.Unmarshal(raw, &h); err != nil || len(h.Fields.Title) == 0 {
			fmt.Fprintf(out, "%d. %s\n", i+1, string(raw))
			continue
		}
		fmt.Fprintf(out, "%d. %s\n", i+1, headerText(h.Fields.Title[0]))
		if len(h.Fields.OpeningText) > 0 {
			fmt.Fprintf(out, "   %s\n", dimText(truncate(h.Fields.OpeningText[0], 200)))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	wikiCmd.PersistentFlags().String("es-url", "", "Elasticsearch URL")
	wikiCmd.PersistentFlags().String("es-api-key", "", "Elasticsearch API key")
	_ = viper.BindPFlag("es-url", wikiCmd.PersistentFlags().Lookup("es-url"))
	_ = viper.BindPFlag("es-api-key", wikiCmd.PersistentFlags().Lookup("es-api-key"))

	wikiSearchCmd.Flags().Bool("map-only", false, "only articles with coordinates")
	wikiCmd.AddCommand(wikiSearchCmd, wikiGeoCmd, wikiValidateCmd)
	rootCmd.AddCommand(wikiCmd)
}
