package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/taskboard/internal/api"
)

var (
	submitPriority   string
	submitTimeout    int
	submitMaxRetries int
)

func init() {
	submitCmd.Flags().StringVarP(&submitPriority, "priority", "p", "",
		"task priority: high, medium, or low (default medium)")
	submitCmd.Flags().IntVar(&submitTimeout, "timeout", 0,
		"per-task deadline in seconds (0 uses the server default)")
	submitCmd.Flags().IntVar(&submitMaxRetries, "max-retries", -1,
		"retry budget (-1 uses the server default, 0 disables retries)")
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit TYPE [PAYLOAD]",
	Short: "Submit a task and print its ID",
	Long: `Submit a task of the given type. PAYLOAD is a JSON document passed
to the handler; "@file.json" reads it from a file, "-" from stdin, and an
omitted payload defaults to {}.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	payload, err := resolvePayload(args)
	if err != nil {
		return err
	}

	req := api.SubmitTaskRequest{
		Type:           args[0],
		Payload:        payload,
		Priority:       submitPriority,
		TimeoutSeconds: submitTimeout,
	}
	if submitMaxRetries >= 0 {
		req.MaxRetries = &submitMaxRetries
	}

	var resp api.SubmitTaskResponse
	if err := newClient().post("/api/tasks", req, &resp); err != nil {
		return err
	}

	if resp.Warning != "" {
		fmt.Fprintln(os.Stderr, "Warning:", resp.Warning)
	}
	fmt.Println(resp.ID)
	return nil
}

func resolvePayload(args []string) (json.RawMessage, error) {
	if len(args) < 2 {
		return json.RawMessage(`{}`), nil
	}

	raw := args[1]
	switch {
	case raw == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		return json.RawMessage(data), nil
	case len(raw) > 1 && raw[0] == '@':
		data, err := os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		return json.RawMessage(data), nil
	default:
		return json.RawMessage(raw), nil
	}
}
