package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/taskboard/internal/task"
)

var resultWait time.Duration

func init() {
	resultCmd.Flags().DurationVarP(&resultWait, "wait", "w", 0,
		"block up to this long for the task to finish (e.g. 30s)")
	rootCmd.AddCommand(resultCmd)
}

var resultCmd = &cobra.Command{
	Use:   "result ID",
	Short: "Fetch a task's outcome",
	Long: `Fetch a task's outcome as JSON. A task that has not finished yet
reports "ready": false; pass --wait to block for completion. Failed and timed
out tasks carry a structured error instead of a result.`,
	Args: cobra.ExactArgs(1),
	RunE: runResult,
}

func runResult(cmd *cobra.Command, args []string) error {
	path := "/api/tasks/" + args[0] + "/result"
	if resultWait > 0 {
		path += "?wait=" + url.QueryEscape(resultWait.String())
	}

	var res task.TaskResult
	if err := newClient().get(path, &res); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if !res.Ready {
		fmt.Fprintln(os.Stderr, "Task has not finished yet.")
	}
	return nil
}
