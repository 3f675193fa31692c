package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List enrolled facial templates",
	RunE:  runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)

	templatesCmd.Flags().Bool("json", false, "Output as JSON")
}

// templateRow is the listing shape; embeddings are never printed.
type templateRow struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	SourceImageName string    `json:"source_image_name,omitempty"`
	EmbeddingBytes  int       `json:"embedding_bytes"`
	EnrolledAt      time.Time `json:"enrolled_at"`
}

func printTemplates(w io.Writer, templates []database.Template, asJSON bool) error {
	rows := make([]templateRow, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, templateRow{
			ID:              t.ID,
			Username:        t.Username,
			SourceImageName: t.SourceImageName,
			EmbeddingBytes:  len(t.Embedding),
			EnrolledAt:      t.EnrolledAt.UTC(),
		})
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tSOURCE\tBYTES\tENROLLED")
	fmt.Fprintln(tw, "--\t--------\t------\t-----\t--------")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.Username, r.SourceImageName, r.EmbeddingBytes, r.EnrolledAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d templates\n", len(rows))
	return nil
}

func runTemplates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	templates, err := a.store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	return printTemplates(cmd.OutOrStdout(), templates, mustGetBool(cmd, "json"))
}
