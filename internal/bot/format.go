package bot

import (
	"fmt"
	"strings"

	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/syncer"
)

const startText = `Ima li terminaaa!?

Kako da dobijas obavjestenja:
1) /sub <specijalista> (npr. /sub reumatolog)
2) /list (vidi pretplate)
3) /unsub <id> ili /unsuball (odjava)

Provjera: samo posalji rijec (npr. reumatolog).
Test odmah: /sync (pokreni provjeru sad)`

// FormatAnswer renders a lookup result as a short chat reply. A status on the
// answer wins; otherwise the first open item of the list decides.
func FormatAnswer(q string, res query.Result) string {
	var source string
	if res.SourceReportDate != "" {
		source = "Izvjestaj: " + res.SourceReportDate
	}

	if res.Answer.Status != nil {
		if *res.Answer.Status == slots.StatusHasSlots {
			line := "Prvi dostupni termin: " + slots.Deref(res.Answer.FirstAvailable, "nepoznato")
			if res.Answer.Specialist != "" {
				line += " (" + res.Answer.Specialist + ")"
			}
			return joinLines("IMA TERMINA", line, source)
		}
		return joinLines("NEMA TERMINA", source)
	}

	if len(res.Items) == 0 {
		return joinLines("Nijesam nasao rezultate za: "+q, source)
	}
	for _, item := range res.Items {
		if item.Status != slots.StatusHasSlots || item.FirstAvailable == nil {
			continue
		}
		var hint string
		if len(res.Items) > 1 {
			hint = "Ako zelis preciznije, posalji naziv ambulante iz liste na sajtu."
		}
		return joinLines(
			"IMA TERMINA",
			fmt.Sprintf("Prvi dostupni termin: %s (%s)", *item.FirstAvailable, item.Specialist),
			source,
			hint,
		)
	}
	return joinLines("NEMA TERMINA", source)
}

// FormatSyncResult renders a sync result for the /sync command.
func FormatSyncResult(res syncer.Result) string {
	if !res.OK {
		reason := res.Reason
		if reason == "" {
			reason = "unknown error"
		}
		return "Sync failed: " + reason
	}
	skipped := "skipped: no"
	if res.Skipped {
		reason := res.Reason
		if reason == "" {
			reason = "no changes"
		}
		skipped = "skipped: yes (" + reason + ")"
	}
	return joinLines(
		"Sync done.",
		"sourceReportDate: "+slots.Deref(res.SourceReportDate, "-"),
		fmt.Sprintf("changes: %d", res.ChangesCount),
		fmt.Sprintf("notifications: %d", res.NotificationsCount),
		skipped,
	)
}

func joinLines(lines ...string) string {
	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
