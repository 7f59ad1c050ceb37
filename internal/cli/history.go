package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytbatch/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previously run batches",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently completed batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.New(paths.AppData)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := history.NewRepository(db).List(limit)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("no recorded batches")
				return nil
			}

			for _, r := range records {
				fmt.Printf("%s  %-10s  %3d/%3d completed  %3d failed  %3d cancelled  %s\n",
					r.ID, r.Status, r.Completed, r.Total, r.Failed, r.Cancelled,
					r.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max records to list (0 = default)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch_id>",
		Short: "Show a batch's per-task breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.New(paths.AppData)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, tasks, err := history.NewRepository(db).Get(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no batch recorded with id %q", args[0])
			}

			fmt.Printf("batch %s: %s, %d/%d completed, %d failed, %d cancelled (%.1f%% success)\n",
				rec.ID, rec.Status, rec.Completed, rec.Total, rec.Failed, rec.Cancelled, rec.SuccessRate)
			fmt.Printf("started %s, completed %s, elapsed %.1fs\n",
				rec.StartedAt.Format("2006-01-02 15:04:05"), rec.CompletedAt.Format("2006-01-02 15:04:05"), rec.ElapsedSeconds)

			for _, t := range tasks {
				line := fmt.Sprintf("  %-24s %-12s state=%-9s retries=%d", t.TaskID, t.VideoID, t.State, t.RetryCount)
				if t.ErrorKind != "" {
					line += fmt.Sprintf(" error=%s (%s)", t.ErrorKind, t.ErrorMessage)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.New(paths.AppData)
			if err != nil {
				return err
			}
			defer db.Close()

			return history.NewRepository(db).ClearHistory()
		},
	}
}
