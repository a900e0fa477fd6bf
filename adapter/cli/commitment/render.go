package commitment

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/jurzon/backy/internal/commitments/domain"
)

const timeLayout = "2006-01-02 15:04 MST"

func renderList(w io.Writer, list []queries.CommitmentDTO) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No commitments found.")
		return
	}

	fmt.Fprintf(w, "Commitments (%d):\n", len(list))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, c := range list {
		title := c.Goal
		if label := riskLabel(c.RiskBadge); label != "" {
			title += " " + label
		}
		fmt.Fprintf(w, "%s %s\n", statusIcon(c.Status), title)
		fmt.Fprintf(w, "   ID: %s\n", c.ID.String()[:8])
		fmt.Fprintf(w, "   Stake: %s  Due: %s\n", c.Stake, formatTime(c.Deadline, c.Timezone))
		fmt.Fprintf(w, "   Progress: %s %d/%d check-ins\n", progressBar(c.ProgressPercent), c.CheckInCount, c.ExpectedCount)
		fmt.Fprintln(w)
	}
}

func renderCommitment(w io.Writer, c *queries.CommitmentDTO) {
	fmt.Fprintf(w, "Commitment: %s\n", c.ID)
	fmt.Fprintf(w, "  Goal:       %s\n", c.Goal)
	fmt.Fprintf(w, "  Stake:      %s\n", c.Stake)
	fmt.Fprintf(w, "  Status:     %s\n", c.Status)
	if label := riskLabel(c.RiskBadge); label != "" {
		fmt.Fprintf(w, "  Risk:       %s\n", label)
	}
	fmt.Fprintf(w, "  Schedule:   %s\n", c.Schedule)
	fmt.Fprintf(w, "  Deadline:   %s\n", formatTime(c.Deadline, c.Timezone))
	fmt.Fprintf(w, "  Progress:   %s %.0f%% of the time elapsed\n", progressBar(c.ProgressPercent), c.ProgressPercent)
	fmt.Fprintf(w, "  Check-ins:  %d of %d expected\n", c.CheckInCount, c.ExpectedCount)
	if c.NextOccurrence != nil {
		fmt.Fprintf(w, "  Next:       %s\n", formatTime(*c.NextOccurrence, c.Timezone))
	}
	if c.GraceExpiresAt != nil {
		fmt.Fprintf(w, "  Decide by:  %s\n", formatTime(*c.GraceExpiresAt, c.Timezone))
	}
	fmt.Fprintf(w, "  Created:    %s\n", formatTime(c.CreatedAt, c.Timezone))

	if len(c.CheckIns) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check-ins:")
	for _, ci := range c.CheckIns {
		line := "  [x] " + formatTime(ci.OccurredAt, c.Timezone)
		if ci.Note != "" {
			line += "  " + ci.Note
		}
		fmt.Fprintln(w, line)
		if ci.PhotoURL != "" {
			fmt.Fprintf(w, "      photo: %s\n", ci.PhotoURL)
		}
	}
}

func renderPreview(w io.Writer, p *queries.SchedulePreviewDTO) {
	fmt.Fprintf(w, "Schedule: %s\n", p.Schedule)
	fmt.Fprintf(w, "RRULE:    %s\n", p.RRule)
	if len(p.Occurrences) == 0 {
		fmt.Fprintln(w, "No upcoming check-ins before the deadline.")
		return
	}
	fmt.Fprintf(w, "Next %d check-ins:\n", len(p.Occurrences))
	for i, o := range p.Occurrences {
		fmt.Fprintf(w, "  %d. %s  (%s)\n", i+1, p.Local[i].Format(timeLayout), o.UTC().Format(time.RFC3339))
	}
}

func statusIcon(status string) string {
	switch domain.Status(status) {
	case domain.StatusCompleted:
		return "[x]"
	case domain.StatusFailed:
		return "[!]"
	case domain.StatusDecisionNeeded:
		return "[?]"
	case domain.StatusCancelled, domain.StatusDeleted:
		return "[-]"
	default:
		return "[ ]"
	}
}

func riskLabel(badge string) string {
	switch domain.RiskBadge(badge) {
	case domain.RiskOnTrack:
		return "(on track)"
	case domain.RiskSlightlyBehind:
		return "(slightly behind)"
	case domain.RiskBehind:
		return "(behind)"
	case domain.RiskAtRisk:
		return "(at risk!)"
	case domain.RiskCritical:
		return "(critical!!)"
	case domain.RiskDecisionNeeded:
		return "(decision needed)"
	default:
		return ""
	}
}

// progressBar draws a ten-cell bar for a percentage in [0, 100].
func progressBar(percent float64) string {
	filled := int(percent / 10)
	filled = min(max(filled, 0), 10)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}

func formatTime(t time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}
