package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amerfu/llm-fallback/internal/services/providers"
)

type queryRequest struct {
	Params         json.RawMessage            `json:"params"`
	LLMConfigs     []providers.LLMQueryConfig `json:"llmConfigs"`
	CooloffSeconds float64                    `json:"cooloffSeconds,omitempty"`
}

// NewQueryCommand creates the query command
func NewQueryCommand(ctx context.Context) *cobra.Command {
	var params, prompt string
	var candidates []string
	var cooloff float64

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Send a chat completion through the proxy",
		Long: `Send a chat completion through the proxy and print which provider answered.
Candidates are tried in the order given, formatted as provider:model[@routingHint].`,
		Example: `  fallbackctl query --prompt "Say hi" -c groq:llama-3.3-70b-versatile -c openrouter:meta-llama/llama-3.3-70b-instruct@DeepInfra
  fallbackctl query --params @request.json -c cerebras:llama3.1-8b`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(candidates) == 0 {
				return fmt.Errorf("at least one --candidate is required")
			}

			configs := make([]providers.LLMQueryConfig, 0, len(candidates))
			for _, c := range candidates {
				cfg, err := parseCandidate(c)
				if err != nil {
					return err
				}
				configs = append(configs, cfg)
			}

			rawParams, err := buildParams(params, prompt)
			if err != nil {
				return err
			}

			body, err := APIRequest(ctx, cmd.OutOrStdout(), http.MethodPost, "/", queryRequest{
				Params:         rawParams,
				LLMConfigs:     configs,
				CooloffSeconds: cooloff,
			})
			if err != nil {
				return err
			}

			var resp providers.Params
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			printQueryResponse(cmd, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&params, "params", "", "Request params as JSON, or @file to read them from a file")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "User message, used when --params is not given")
	cmd.Flags().StringArrayVarP(&candidates, "candidate", "c", nil, "Candidate as provider:model[@routingHint], repeatable")
	cmd.Flags().Float64Var(&cooloff, "cooloff", 0, "Cool-off window in seconds for this request")

	return cmd
}

// parseCandidate reads provider:model[@routingHint].
func parseCandidate(s string) (providers.LLMQueryConfig, error) {
	providerName, model, ok := strings.Cut(s, ":")
	if !ok || model == "" {
		return providers.LLMQueryConfig{}, fmt.Errorf("invalid candidate %q: expected provider:model[@routingHint]", s)
	}
	id, err := providers.ParseProviderID(providerName)
	if err != nil {
		return providers.LLMQueryConfig{}, fmt.Errorf("invalid candidate %q: %w", s, err)
	}

	cfg := providers.LLMQueryConfig{Model: model, Provider: id}
	if i := strings.LastIndex(model, "@"); i > 0 {
		hint := model[i+1:]
		cfg.Model = model[:i]
		if hint != "" {
			cfg.RoutingHint = &hint
		}
	}
	return cfg, nil
}

func buildParams(params, prompt string) (json.RawMessage, error) {
	if params == "" {
		if prompt == "" {
			return nil, fmt.Errorf("either --params or --prompt is required")
		}
		return json.Marshal(map[string]interface{}{
			"messages": []map[string]string{{"role": "user", "content": prompt}},
		})
	}

	raw := []byte(params)
	if strings.HasPrefix(params, "@") {
		data, err := os.ReadFile(params[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		raw = data
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("params must be a JSON object")
	}
	return json.RawMessage(raw), nil
}

func printQueryResponse(cmd *cobra.Command, resp providers.Params) {
	out := cmd.OutOrStdout()
	if outputJSON {
		OutputJSON(out, resp)
		return
	}

	provider, _ := resp.StringField("provider")
	model, _ := resp.StringField("model")
	_, _ = fmt.Fprintf(out, "Provider: %s\nModel: %s\n", provider, model)

	var choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if raw, ok := resp["choices"]; ok && json.Unmarshal(raw, &choices) == nil && len(choices) > 0 {
		_, _ = fmt.Fprintf(out, "\n%s\n", choices[0].Message.Content)
	}
}
