// Package cli holds shared helpers for the command-line entrypoints.
package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// PrintProposal renders the review table for an import proposal.
func PrintProposal(p *recon.Proposal) {
	fmt.Printf("Batch %s (%s): %d candidates\n\n", p.BatchID, p.Source, len(p.Candidates))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDETAILS\tSTATUS\tMEMBER\tMONTH\tNOTE")
	for _, c := range p.Candidates {
		month := ""
		if !c.Month.IsZero() {
			month = c.Month.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(c.ID),
			c.Transaction.Date.Format("02.01.2006"),
			c.Transaction.Amount.StringFixed(2),
			truncate(c.Transaction.Details, 40),
			c.Status,
			c.MemberID,
			month,
			truncate(c.Note, 50))
	}
	w.Flush()

	if len(p.Diagnostics) > 0 {
		fmt.Println("\nSkipped rows:")
		for _, d := range p.Diagnostics {
			fmt.Printf("  line %d: %s\n", d.Line, d.Reason)
		}
	}
}

// PrintProposalSummary prints the per-status counts of a proposal.
func PrintProposalSummary(p *recon.Proposal) {
	counts := make(map[recon.Status]int)
	for _, c := range p.Candidates {
		counts[c.Status]++
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Summary: Matched=%d Unmatched=%d Duplicate=%d Conflict=%d Skipped=%d\n",
		counts[recon.StatusMatched],
		counts[recon.StatusUnmatched],
		counts[recon.StatusDuplicate],
		counts[recon.StatusConflict],
		len(p.Diagnostics))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
