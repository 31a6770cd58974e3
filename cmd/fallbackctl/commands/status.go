package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/amerfu/llm-fallback/internal/handlers"
)

// now is replaced in tests.
var now = time.Now

// NewStatusCommand creates the cool-off status command
func NewStatusCommand(ctx context.Context) *cobra.Command {
	var cooloff float64
	var coolingOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cool-off state",
		Long:  "List the last failure time of every provider/model pair and whether it is still cooling off",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := "/"
			if cooloff > 0 {
				endpoint += "?cooloffSeconds=" + strconv.FormatFloat(cooloff, 'f', -1, 64)
			}

			body, err := APIRequest(ctx, cmd.OutOrStdout(), http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			var status handlers.StatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return fmt.Errorf("failed to decode status: %w", err)
			}

			OutputTable(cmd.OutOrStdout(), []string{"PROVIDER", "MODEL", "LAST FAILURE", "STATE"},
				statusRows(status, now(), coolingOnly))
			return nil
		},
	}

	cmd.Flags().Float64Var(&cooloff, "cooloff", 0, "Cool-off window in seconds (default: the proxy's)")
	cmd.Flags().BoolVar(&coolingOnly, "cooling", false, "Only show pairs that are still cooling off")

	return cmd
}

func statusRows(status handlers.StatusResponse, at time.Time, coolingOnly bool) [][]string {
	window := time.Duration(status.CooloffSeconds * float64(time.Second))

	var rows [][]string
	for provider, models := range status.Statuses {
		for model, ms := range models {
			failedAt := time.UnixMilli(ms)
			remaining := failedAt.Add(window).Sub(at)

			state := "available"
			if remaining > 0 {
				state = fmt.Sprintf("cooling (%s left)", remaining.Round(time.Second))
			} else if coolingOnly {
				continue
			}

			rows = append(rows, []string{
				provider.String(),
				model,
				failedAt.UTC().Format(time.RFC3339),
				state,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})
	return rows
}
