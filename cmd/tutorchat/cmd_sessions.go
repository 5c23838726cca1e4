package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutorchat-dev/tutorchat"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored conversations",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, _ []string) error {
	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listed, err := engine.Sessions().List(ctx)
	if err != nil {
		// A degraded listing still prints whatever the cache had.
		fmt.Fprintf(os.Stderr, "warning: listing degraded: %v\n", err)
	}
	if len(listed) == 0 {
		fmt.Println("no conversations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODULE\tMESSAGES\tUPDATED\tPREVIEW")
	for _, s := range listed {
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Title, s.ModuleRef, s.MessageCount, updated, s.Preview)
	}
	return w.Flush()
}

func printSessions(ctx context.Context, engine *tutorchat.Engine) {
	listed, err := engine.Sessions().List(ctx)
	if err != nil {
		fmt.Printf("listing degraded: %v\n", err)
	}
	if len(listed) == 0 {
		fmt.Println("no conversations")
		return
	}
	for _, s := range listed {
		fmt.Printf("  %s  %s (%d messages)\n", s.ID, s.Title, s.MessageCount)
	}
}
