package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/taskboard/internal/api"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status ID",
	Short: "Print a task's lifecycle state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	var resp api.TaskStatusResponse
	if err := newClient().get("/api/tasks/"+args[0], &resp); err != nil {
		return err
	}
	fmt.Println(resp.Status)
	return nil
}
