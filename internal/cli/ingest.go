package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"elasticlm-backend/internal/client"
	"elasticlm-backend/internal/services"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Upload every supported file in a directory",
	Long: `Uploads every PDF, DOCX, TXT and Markdown file in dir. With --watch it
keeps running and uploads files as they are added.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		opts, err := pollOptions(cmd)
		if err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")

		paths, err := supportedFiles(dir)
		if err != nil {
			return err
		}

		c := newClient()
		out := cmd.OutOrStdout()
		var mu sync.Mutex
		report := func(st client.FileStatus) {
			if st.State == client.StateUploading {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			printStatus(out, st)
		}

		if len(paths) > 0 {
			fmt.Fprintf(out, "%s %d files in %s\n", headerText("Ingesting"), len(paths), dir)
			c.UploadAll(cmd.Context(), paths, opts, report)
		}
		if !watch {
			if len(paths) == 0 {
				fmt.Fprintf(out, "No supported files in %s\n", dir)
			}
			return nil
		}

		w, err := newDirWatcher(dir)
		if err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(out, "%s %s for new files (Ctrl+C to stop)\n", headerText("Watching"), dir)
		return w.Run(ctx, func(path string) {
			c.UploadAll(ctx, []string{path}, opts, report)
		})
	},
}

func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !services.SupportedExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func init() {
	addPollFlags(ingestCmd)
	ingestCmd.Flags().BoolP("watch", "w", false, "keep watching dir for new files")
	rootCmd.AddCommand(ingestCmd)
}
