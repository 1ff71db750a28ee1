package wizard

import (
	"strings"

	"github.com/rcabanilla/lapida/internal/models"
)

// composeNotes builds the single notes string submitted with a reservation.
// The layout is fixed: visitor block, blank line, deceased block, blank
// line, free-text visitor notes. Lines with empty values are omitted
// entirely, empty blocks drop their surrounding blank line, and the output
// is deterministic for a given input.
func composeNotes(applicant models.Applicant, deceased models.Deceased, visitorNotes string) string {
	visitor := block(
		line("Applicant", applicant.FullName),
		line("Relationship", applicant.Relationship),
		line("Contact", applicant.ContactNumber),
		line("Email", applicant.Email),
		line("Address", applicant.Address),
	)

	interred := block(
		line("Deceased", deceased.FullName),
		line("Age", deceased.Age),
		line("Date of Death", deceased.DateOfDeath),
		line("Date of Burial", deceased.DateOfBurial),
		line("Remarks", deceased.Remarks),
	)

	var extra string
	if trimmed := strings.TrimSpace(visitorNotes); trimmed != "" {
		extra = "Visitor Notes:\n" + trimmed
	}

	var sections []string
	for _, s := range []string{visitor, interred, extra} {
		if s != "" {
			sections = append(sections, s)
		}
	}

	return strings.Join(sections, "\n\n")
}

func line(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func block(lines ...string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
