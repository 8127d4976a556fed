package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failed after it started
	ExitCommandError = 2 // Bad config, unreachable store, bad arguments
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// connectExit classifies a store opening failure.
func connectExit(err error) error {
	var ce *reconcile.ConnectionError
	if errors.As(err, &ce) {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	return WrapExitError(ExitFailure, "failed to start", err)
}

// printReport writes a per-pass table and the run footer.
func printReport(w io.Writer, r *reconcile.RunReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSOURCE\tEXISTING\tNEW\tOBSOLETE\tINSERTED\tCONFLICTS\tSKIPPED\tDELETED\tSEQUENCE")
	for _, p := range r.Passes {
		seq := "-"
		if p.Sequence > 0 {
			seq = fmt.Sprint(p.Sequence)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			p.Entity, p.Source, p.Existing, p.New, p.Obsolete,
			p.Inserted, p.Conflicts, p.Skipped, p.Deleted, seq)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range r.Config {
		fmt.Fprintf(w, "config %s: %d added, %d changed, %d kept, %d dropped\n",
			c.Table, c.Added, c.Changed, c.Kept, c.Dropped)
	}
	for _, b := range r.Blobs {
		fmt.Fprintf(w, "blobs %s -> %s: %d copied, %d skipped, %d failed (%d bytes)\n",
			b.Kind, b.Target, b.Copied, b.Skipped, b.Failed, b.Bytes)
	}

	status := r.State.String()
	if r.State == reconcile.StateFailed {
		status = fmt.Sprintf("%s in %s: %s", status, r.FailedIn, r.Error)
	}
	_, err := fmt.Fprintf(w, "run %s (%s, group %q): %s\n", r.ID, r.Mode, r.Group.Name, status)
	return err
}

func printGroups(w io.Writer, gs []models.TenantGroup) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAUTH TOKEN")
	for _, g := range gs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.Name, g.AuthToken)
	}
	return tw.Flush()
}

// confirm asks a yes/no question; only "y" or "yes" is a yes.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
