package cli

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phrazzld/taskboard/internal/api"
)

var (
	listStatus   string
	listPriority string
)

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "",
		"filter by status (pending, in_progress, completed, failed, cancelled, timed_out)")
	listCmd.Flags().StringVar(&listPriority, "priority", "",
		"filter by priority (high, medium, low)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks known to the server",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	query := url.Values{}
	if listStatus != "" {
		query.Set("status", listStatus)
	}
	if listPriority != "" {
		query.Set("priority", listPriority)
	}
	path := "/api/tasks"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp api.ListTasksResponse
	if err := newClient().get(path, &resp); err != nil {
		return err
	}

	if len(resp.Tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPRIORITY\tSTATUS\tOWNER\tCREATED")
	for _, t := range resp.Tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Type,
			t.Priority,
			t.Status,
			t.Owner,
			t.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}
