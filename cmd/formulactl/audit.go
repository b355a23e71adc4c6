package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/audit"
	"mercator-hq/formula/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the audit log of rejected expressions",
	Long: `Work with the audit store configured under audit.backend.

Every expression rejected by the security gate is recorded with a reason
code, a severity and a sanitized preview of the input.`,
}

var auditQueryFlags struct {
	since       string
	until       string
	reason      string
	minSeverity string
	limit       int
	offset      int
	format      string
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit events, newest first",
	Long: `List audit events matching the given filters, newest first.

--since and --until accept an RFC 3339 timestamp or a duration before now
(e.g. 24h).

Examples:
  # Critical rejections of the last day
  formulactl audit query --since 24h --min-severity critical

  # Every assignment attempt as CSV
  formulactl audit query --reason assignment --limit 0 --format csv`,
	Args: cobra.NoArgs,
	RunE: queryAudit,
}

var auditPruneFlags struct {
	days       int
	maxRecords int64
	dryRun     bool
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit events past the retention limits",
	Long: `Apply the retention policy from audit.retention once.

Examples:
  # Prune with the configured policy
  formulactl audit prune

  # Keep one week and at most 10000 events
  formulactl audit prune --days 7 --max-records 10000

  # Show how many events are past the age limit without deleting
  formulactl audit prune --dry-run`,
	Args: cobra.NoArgs,
	RunE: pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditPruneCmd)

	auditQueryCmd.Flags().StringVar(&auditQueryFlags.since, "since", "", "only events at or after this time")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.until, "until", "", "only events at or before this time")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.reason, "reason", "", "only this reason code")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.minSeverity, "min-severity", "", "only this severity or higher: low, medium, high, critical")
	auditQueryCmd.Flags().IntVar(&auditQueryFlags.limit, "limit", 50, "maximum events to list (0 = all)")
	auditQueryCmd.Flags().IntVar(&auditQueryFlags.offset, "offset", 0, "skip this many events")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.format, "format", "text", "output format: text, json, csv")

	auditPruneCmd.Flags().IntVar(&auditPruneFlags.days, "days", 0, "override retention days (-1 keeps events forever)")
	auditPruneCmd.Flags().Int64Var(&auditPruneFlags.maxRecords, "max-records", -1, "override the maximum number of events (0 = unlimited)")
	auditPruneCmd.Flags().BoolVar(&auditPruneFlags.dryRun, "dry-run", false, "count events past the age limit without deleting")
}

// AuditEvents is the outcome of audit query.
type AuditEvents struct {
	Total  int64          `json:"total"`
	Events []*audit.Event `json:"events"`
}

// RenderText prints one line per event.
func (r *AuditEvents) RenderText(w io.Writer) error {
	for _, e := range r.Events {
		fmt.Fprintf(w, "%s  %-8s  %-20s  %q\n",
			e.Timestamp.Local().Format(time.DateTime), e.Severity, e.ReasonCode, e.SourcePreview)
	}
	_, err := fmt.Fprintf(w, "%d of %d matching events\n", len(r.Events), r.Total)
	return err
}

// Header implements cli.Table.
func (r *AuditEvents) Header() []string {
	return []string{"id", "timestamp", "severity", "reason_code", "stage", "position", "source_preview", "message"}
}

// Rows implements cli.Table.
func (r *AuditEvents) Rows() [][]string {
	rows := make([][]string, 0, len(r.Events))
	for _, e := range r.Events {
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.Severity),
			e.ReasonCode,
			e.Stage,
			strconv.Itoa(e.Position),
			e.SourcePreview,
			e.Message,
		})
	}
	return rows
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditQueryFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	now := time.Now()
	query := &audit.Query{
		ReasonCode: auditQueryFlags.reason,
		Limit:      auditQueryFlags.limit,
		Offset:     auditQueryFlags.offset,
	}
	if query.Since, err = parseTimeFlag(auditQueryFlags.since, now); err != nil {
		return cli.NewConfigError("since", err.Error())
	}
	if query.Until, err = parseTimeFlag(auditQueryFlags.until, now); err != nil {
		return cli.NewConfigError("until", err.Error())
	}
	if s := audit.Severity(auditQueryFlags.minSeverity); s != "" {
		if s.Rank() == 0 {
			return cli.NewConfigError("min-severity", fmt.Sprintf("unknown severity %q", s))
		}
		query.MinSeverity = s
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	storage, err := a.requireStorage()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	events, err := storage.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	total, err := storage.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	if events == nil {
		events = []*audit.Event{}
	}

	return cli.NewFormatter(format).FormatTo(stdout(cmd), &AuditEvents{Total: total, Events: events})
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	storage, err := a.requireStorage()
	if err != nil {
		return err
	}

	retention := a.retentionConfig()
	if cmd != nil && cmd.Flags().Changed("days") {
		retention.RetentionDays = max(auditPruneFlags.days, 0)
	}
	if auditPruneFlags.maxRecords >= 0 {
		retention.MaxRecords = auditPruneFlags.maxRecords
	}

	ctx := commandContext(cmd)
	out := stdout(cmd)

	if auditPruneFlags.dryRun {
		if retention.RetentionDays <= 0 {
			fmt.Fprintln(out, "Retention keeps events forever; nothing is past the age limit")
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -retention.RetentionDays)
		n, err := storage.Count(ctx, &audit.Query{Until: &cutoff})
		if err != nil {
			return cli.NewCommandError("audit prune", err)
		}
		fmt.Fprintf(out, "%d events older than %s would be deleted\n", n, cutoff.Format(time.RFC3339))
		return nil
	}

	deleted, err := a.pruner(retention).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	remaining, err := storage.Count(ctx, &audit.Query{})
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(out, "✓ Pruned %d events (%d remaining)\n", deleted, remaining)
	return nil
}

// parseTimeFlag accepts RFC 3339 or a duration before now. Empty yields nil.
func parseTimeFlag(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return nil, fmt.Errorf("%q is neither an RFC 3339 time nor a positive duration", s)
	}
	t := now.Add(-d)
	return &t, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
