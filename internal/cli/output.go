package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/semmidev/bqvault/internal/domain"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.Bold, color.FgCyan)
)

func status(w io.Writer, ok bool) {
	if ok {
		okColor.Fprint(w, "✓ OK  ")
	} else {
		failColor.Fprint(w, "✗ FAIL")
	}
}

func printBackupSets(w io.Writer, sets []domain.BackupSetView) {
	if len(sets) == 0 {
		warnColor.Fprintln(w, "No backups found")
		return
	}

	headColor.Fprintf(w, "%-22s %-9s %s\n", "INSTANT (UTC)", "DATASETS", "SOURCES")
	for _, set := range sets {
		fmt.Fprintf(w, "%-22s %-9d %s\n", set.Key, len(set.Containers), strings.Join(set.SourceIDs(), ", "))
	}
}

func printBatchResults(w io.Writer, results []domain.BatchResult) {
	for _, r := range results {
		status(w, r.Success())
		container := r.ProducedContainerID
		if container == "" {
			container = "(no tables)"
		}
		fmt.Fprintf(w, " %-24s -> %s  %d ok, %d failed\n", r.SourceResourceID, container, r.SuccessCount, r.FailureCount)
		printErrors(w, r.Errors)
	}
}

func printRestoreOutcomes(w io.Writer, outcomes []domain.RestoreOutcome) {
	for _, o := range outcomes {
		status(w, o.Success)
		fmt.Fprintf(w, " %-24s <- %s  %d restored, %d failed, %d view(s) rebuilt",
			o.TargetResourceID, o.SourceBackupContainerID, o.MembersRestored, o.MembersFailed, o.ViewsRecreated)
		if o.ViewsFailed > 0 {
			warnColor.Fprintf(w, ", %d view(s) failed", o.ViewsFailed)
		}
		fmt.Fprintln(w)
		printErrors(w, o.Errors)
	}
}

func printDeleteResult(w io.Writer, r domain.DeleteResult) {
	status(w, r.Success())
	fmt.Fprintf(w, " %d container(s) deleted, %d failed\n", r.SuccessCount, r.FailureCount)
	printErrors(w, r.Errors)
}

func printErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		failColor.Fprintf(w, "    • %s\n", e)
	}
}
