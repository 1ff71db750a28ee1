package wizard

import (
	"fmt"
	"time"

	"github.com/rcabanilla/lapida/internal/models"
)

const dateLayout = "2006-01-02"

// FieldIssue is one specific, user-visible validation failure. The wizard
// never reports a bare "invalid form"; every blocked transition carries the
// list of offending fields.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries the field issues that blocked a step transition.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("details validation failed: %d issue(s)", len(e.Issues))
}

// validateDetails implements the infoValid predicate. Dates are optional;
// when present they must parse, must not lie in the future relative to local
// today, and the burial date must not precede the death date.
func validateDetails(applicant models.Applicant, deceased models.Deceased, now time.Time) []FieldIssue {
	var issues []FieldIssue

	if applicant.FullName == "" {
		issues = append(issues, FieldIssue{"full_name", "applicant full name is required"})
	}
	if applicant.Relationship == "" {
		issues = append(issues, FieldIssue{"relationship", "relationship to the deceased is required"})
	}
	if applicant.ContactNumber == "" {
		issues = append(issues, FieldIssue{"contact_number", "contact number is required"})
	}
	if deceased.FullName == "" {
		issues = append(issues, FieldIssue{"deceased_full_name", "deceased full name is required"})
	}

	today := dateOnly(now)

	death, ok, issue := checkDate("date_of_death", deceased.DateOfDeath, today)
	if issue != nil {
		issues = append(issues, *issue)
	}

	burial, burialOK, issue := checkDate("date_of_burial", deceased.DateOfBurial, today)
	if issue != nil {
		issues = append(issues, *issue)
	}

	if ok && burialOK && burial.Before(death) {
		issues = append(issues, FieldIssue{"date_of_burial", "date of burial cannot be earlier than date of death"})
	}

	return issues
}

// checkDate validates an optional YYYY-MM-DD field against today.
// ok is true only when the field is present and parseable.
func checkDate(field, value string, today time.Time) (parsed time.Time, ok bool, issue *FieldIssue) {
	if value == "" {
		return time.Time{}, false, nil
	}

	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false, &FieldIssue{field, "must be a valid date in YYYY-MM-DD format"}
	}
	if d.After(today) {
		return time.Time{}, false, &FieldIssue{field, "cannot be in the future"}
	}
	return d, true, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
