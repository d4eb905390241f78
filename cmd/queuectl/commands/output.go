package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// truncate shortens s to n runes for table display
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printJobs(w io.Writer, jobs []domain.Job) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No jobs found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tATTEMPTS\tCOMMAND\tUPDATED\tNEXT RETRY\tERROR")
	for i := range jobs {
		j := &jobs[i]
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\t%s\t%s\n",
			j.ID,
			j.State,
			j.Attempts, j.MaxRetries,
			truncate(j.Command, 40),
			formatTime(&j.UpdatedAt),
			formatTime(j.NextRetryAt),
			truncate(deref(j.ErrorMessage), 60),
		)
	}
	return tw.Flush()
}

func printJob(w io.Writer, j *domain.Job) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", j.ID)
	fmt.Fprintf(tw, "Command:\t%s\n", j.Command)
	fmt.Fprintf(tw, "State:\t%s\n", j.State)
	fmt.Fprintf(tw, "Attempts:\t%d/%d\n", j.Attempts, j.MaxRetries)
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(&j.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", formatTime(&j.UpdatedAt))
	fmt.Fprintf(tw, "Next retry:\t%s\n", formatTime(j.NextRetryAt))
	fmt.Fprintf(tw, "Error:\t%s\n", deref(j.ErrorMessage))
	if err := tw.Flush(); err != nil {
		return err
	}
	if j.Output != nil && *j.Output != "" {
		_, err := fmt.Fprintf(w, "Output:\n%s\n", *j.Output)
		return err
	}
	return nil
}
