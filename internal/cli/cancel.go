package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/taskboard/internal/api"
)

func init() {
	rootCmd.AddCommand(cancelCmd)
}

var cancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Request cancellation of a task",
	Long: `Request cancellation of a task. A pending task is cancelled
immediately; a running task gets the cooperative signal and reaches its
terminal state once the handler observes it.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	var resp api.CancelTaskResponse
	if err := newClient().post("/api/tasks/"+args[0]+"/cancel", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("cancellation accepted, status: %s\n", resp.Status)
	return nil
}
