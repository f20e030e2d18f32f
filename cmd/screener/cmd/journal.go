package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/journal"
	"github.com/rustyeddy/screener/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled backtest runs",
	Long: `Query and display backtest runs recorded with 'backtest --journal'.

Subcommands:
  runs  - List runs, newest first
  show  - Print one run and its trades as Org-mode
  today - List trades closed today
  day   - List trades closed on a specific day

Examples:
  screener journal runs AAPL
  screener journal show <run-id> -o run.org
  screener journal day 2024-01-15`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs [symbol]",
	Short: "List journaled runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run and its trades as Org-mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalOrgOut string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
	journalShowCmd.Flags().StringVarP(&journalOrgOut, "output", "o", "", "write the Org entry to this file instead of stdout")
}

func openJournal() (*journal.SQLite, error) {
	path := cfg.Journal.DBPath
	if journalDBPath != "" {
		path = journalDBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	symbol := ""
	if len(args) == 1 {
		symbol = strings.ToUpper(args[0])
	}
	runs, err := j.ListRuns(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	report.Runs(os.Stdout, runs)
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	org, err := j.ExportBacktestOrg(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	if journalOrgOut == "" {
		fmt.Print(org)
		return nil
	}
	if err := os.WriteFile(journalOrgOut, []byte(org), 0644); err != nil {
		return fmt.Errorf("write org: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", journalOrgOut)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listClosedOn(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listClosedOn(args[0])
}

func listClosedOn(day string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	recs, err := j.ListTradesClosedBetween(context.Background(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
