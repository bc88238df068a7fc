package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"elasticlm-backend/internal/client"
)

var (
	successText = color.New(color.FgGreen).SprintFunc()
	failedText  = color.New(color.FgRed).SprintFunc()
	pendingText = color.New(color.FgYellow).SprintFunc()
	headerText  = color.New(color.FgCyan, color.Bold).SprintFunc()
	dimText     = color.New(color.Faint).SprintFunc()
)

func printStatus(w io.Writer, st client.FileStatus) {
	switch st.State {
	case client.StateSuccess:
		fmt.Fprintf(w, "%s %s\n%s\n", successText("✓"), st.Name, st.Summary)
	case client.StateError:
		fmt.Fprintf(w, "%s %s: %s\n", failedText("✗"), st.Name, st.Error)
	case client.StateUploading:
		fmt.Fprintf(w, "%s %s\n", dimText("↑"), st.Name)
	default:
		fmt.Fprintf(w, "%s %s\n", pendingText("…"), st.Name)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
