package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/walker84837/ryokan/audit"
)

var (
	auditJSONOutput bool
	auditSince      string
	auditUntil      string
	auditAction     string
	auditNoteID     string
	auditLimit      int
	auditOffset     int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long: `Query the audit trail of session and note operations.

Examples:
  # All recent events
  ryokan audit query

  # Failed unlock attempts in the last day
  ryokan audit failures --since "$(date -d '24 hours ago' -Iseconds)"

  # Everything that happened to one note
  ryokan audit query --note-id 7f3a...`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events with filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditQuery(nil)
	},
}

var auditFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show failed operations",
	Long:  "Show failed operations, including failed PIN attempts, for security monitoring.",
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := false
		return runAuditQuery(&failed)
	},
}

func runAuditQuery(success *bool) error {
	logger, err := openAuditLoggerForQuery()
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := audit.QueryOptions{
		Action:  auditAction,
		NoteID:  auditNoteID,
		Success: success,
		Limit:   auditLimit,
		Offset:  auditOffset,
	}

	if auditSince != "" {
		since, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since value (want RFC3339): %w", err)
		}
		opts.Since = &since
	}
	if auditUntil != "" {
		until, err := time.Parse(time.RFC3339, auditUntil)
		if err != nil {
			return fmt.Errorf("invalid --until value (want RFC3339): %w", err)
		}
		opts.Until = &until
	}

	result, err := logger.Query(opts)
	if err != nil {
		return fmt.Errorf("audit query failed: %w", err)
	}

	if auditJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	if len(result.Events) == 0 {
		fmt.Println("No matching audit events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOK\tNOTE\tERROR")
	for _, event := range result.Events {
		ok := "yes"
		if !event.Success {
			ok = "NO"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Local().Format("2006-01-02 15:04:05"),
			event.Action,
			ok,
			truncate(event.NoteID, 12),
			truncate(event.Error, 40),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d event(s)", len(result.Events), result.Filtered)
	if result.HasMore {
		fmt.Printf(" (more available, use --offset %d)", auditOffset+len(result.Events))
	}
	fmt.Println()
	return nil
}

// openAuditLoggerForQuery opens the configured audit log read-only-ish: the
// file logger supports Query, syslog does not.
func openAuditLoggerForQuery() (audit.Logger, error) {
	if !viper.GetBool("audit.enabled") {
		return nil, fmt.Errorf("audit logging is not enabled (use --audit or audit.enabled in the config)")
	}
	return audit.NewLogger(&audit.Config{
		Enabled: true,
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path": auditFilePath(),
		},
		LogLevel: viper.GetString("audit.log_level"),
	})
}

func init() {
	auditCmd.PersistentFlags().BoolVar(&auditJSONOutput, "json", false, "output events as JSON")
	auditCmd.PersistentFlags().StringVar(&auditSince, "since", "", "only events at or after this RFC3339 time")
	auditCmd.PersistentFlags().StringVar(&auditUntil, "until", "", "only events before this RFC3339 time")
	auditCmd.PersistentFlags().StringVar(&auditAction, "action", "", "filter by action name")
	auditCmd.PersistentFlags().StringVar(&auditNoteID, "note-id", "", "filter by note identity")
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 50, "maximum events to show")
	auditCmd.PersistentFlags().IntVar(&auditOffset, "offset", 0, "events to skip")

	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditFailuresCmd)
	rootCmd.AddCommand(auditCmd)
}
