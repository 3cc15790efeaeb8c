package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/model"

	"github.com/spf13/cobra"
)

var (
	filterSeverity string
	filterCategory string
	filterStatus   string
	filterSource   string
	exportOut      string
	resolveNotes   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print incident statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		return incident.WriteJSON(cmd.OutOrStdout(), a.store.Stats(cmd.Context()))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export incidents as classifier training records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		filters := cliFilters()
		records := a.store.ExportForTraining(cmd.Context(), &filters)

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := incident.WriteJSON(w, records); err != nil {
			return err
		}
		if w != cmd.OutOrStdout() {
			a.logger.Infof("Exported %d training records to %s", len(records), exportOut)
		}
		return nil
	},
}

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List and manage stored incidents",
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		filters := cliFilters()
		printIncidents(cmd.OutOrStdout(), a.store.List(cmd.Context(), &filters))
		return nil
	},
}

var incidentsStatusCmd = &cobra.Command{
	Use:   "status <id> <open|investigating|resolved|false_positive>",
	Short: "Move an incident to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd.Context(), cmd.OutOrStdout(), args[0], model.Status(args[1]))
	},
}

var incidentsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark an incident resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd.Context(), cmd.OutOrStdout(), args[0], model.StatusResolved)
	},
}

var incidentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if !a.store.Delete(cmd.Context(), args[0]) {
			return fmt.Errorf("incident %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, incidentsListCmd} {
		c.Flags().StringVar(&filterSeverity, "severity", "", "Comma separated severities")
		c.Flags().StringVar(&filterCategory, "category", "", "Comma separated categories")
		c.Flags().StringVar(&filterStatus, "status", "", "Comma separated statuses")
		c.Flags().StringVar(&filterSource, "source-ip", "", "Exact source IP")
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (stdout when empty)")
	incidentsStatusCmd.Flags().StringVar(&resolveNotes, "notes", "", "Operator notes")
	incidentsResolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "Operator notes")

	incidentsCmd.AddCommand(incidentsListCmd, incidentsStatusCmd, incidentsResolveCmd, incidentsDeleteCmd)
}

func setStatus(ctx context.Context, out io.Writer, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	a, err := newStoreApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	inc, ok := a.store.UpdateStatus(ctx, id, status, resolveNotes)
	if !ok {
		return fmt.Errorf("incident %s not found", id)
	}
	fmt.Fprintf(out, "%s is now %s\n", inc.ID, inc.Status)
	return nil
}

func cliFilters() incident.Filters {
	f := incident.Filters{SourceIP: filterSource}
	for _, v := range splitFlag(filterSeverity) {
		f.Severity = append(f.Severity, model.Severity(v))
	}
	for _, v := range splitFlag(filterCategory) {
		f.Category = append(f.Category, model.Category(v))
	}
	for _, v := range splitFlag(filterStatus) {
		f.Status = append(f.Status, model.Status(v))
	}
	return f
}

func splitFlag(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printIncidents(out io.Writer, incidents []model.Incident) {
	if len(incidents) == 0 {
		fmt.Fprintln(out, "No incidents")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSEVERITY\tCATEGORY\tSTATUS\tTITLE")
	for _, inc := range incidents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inc.ID, inc.Timestamp.Format("2006-01-02 15:04:05"), inc.Severity, inc.Category, inc.Status, inc.Title)
	}
	w.Flush()
}
