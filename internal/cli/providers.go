package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"notra-backend/internal/models"
)

func newProvidersCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the providers a running bridge offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/providers", nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("list providers: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("list providers: status %d", resp.StatusCode)
			}

			var body struct {
				Providers []models.ProviderInfo `json:"providers"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode providers: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), providerTable(body.Providers))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "bridge base URL")
	return cmd
}

func providerTable(providers []models.ProviderInfo) string {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("ID", "MODEL", "STREAMING", "CONFIGURED")
	for _, p := range providers {
		table.AddRow(p.ID, p.Model, p.Streaming, p.Configured)
	}
	return table.String()
}
