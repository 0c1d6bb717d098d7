package careplan

import (
	"fmt"

	"careplan-server/internal/models"
)

// Aggregated is the regeneration-path view of a feedback batch: feedback
// partitioned by kind, each bucket pre-rendered for the revision prompt.
type Aggregated struct {
	Corrections      []string
	Suggestions      []string
	ApprovedSections []string
	Status           models.ApprovalStatus
	// Dropped counts correction items missing original or corrected text.
	// They are excluded from Corrections without erroring; callers log
	// the count so the exclusion stays diagnosable.
	Dropped int
}

// Aggregate partitions feedback items by kind for the regeneration prompt.
// Corrections need both original and corrected text to qualify as span
// replacements; suggestions carry their comment; approvals contribute the
// section name. Unknown kinds fall into no bucket. Status is approved only
// when every item, regardless of kind, carries the approval flag.
func Aggregate(items []models.FeedbackItem) Aggregated {
	agg := Aggregated{Status: models.StatusApproved}

	for _, item := range items {
		switch item.FeedbackType {
		case models.FeedbackCorrection:
			if item.OriginalText != "" && item.CorrectedText != "" {
				rationale := item.Comment
				if rationale == "" {
					rationale = "See correction above"
				}
				agg.Corrections = append(agg.Corrections, fmt.Sprintf(
					"SECTION: %s\nOriginal: %s\nCorrected: %s\nRationale: %s",
					item.SectionName, item.OriginalText, item.CorrectedText, rationale))
			} else {
				agg.Dropped++
			}
		case models.FeedbackSuggestion:
			agg.Suggestions = append(agg.Suggestions, fmt.Sprintf(
				"SECTION: %s\nSuggestion: %s", item.SectionName, item.Comment))
		case models.FeedbackApproval:
			agg.ApprovedSections = append(agg.ApprovedSections, item.SectionName)
		}

		if !item.Approved {
			agg.Status = models.StatusCorrectionsPending
		}
	}

	return agg
}

// ChangeLogEntry records one feedback item for the submit-feedback
// response path. Entries for full span corrections carry the
// before/after pair; everything else gets a single change description.
type ChangeLogEntry struct {
	PharmacistName string `json:"pharmacistName"`
	FeedbackType   string `json:"feedbackType"`
	SectionName    string `json:"sectionName"`
	Comment        string `json:"comment"`
	Approved       bool   `json:"approved"`
	Before         string `json:"before,omitempty"`
	After          string `json:"after,omitempty"`
	Change         string `json:"change"`
}

// ChangeLog builds one human-readable entry per feedback item and derives
// the batch's approval status. An empty batch is vacuously approved.
func ChangeLog(items []models.FeedbackItem) ([]ChangeLogEntry, models.ApprovalStatus) {
	entries := make([]ChangeLogEntry, 0, len(items))
	status := models.StatusApproved

	for _, item := range items {
		entry := ChangeLogEntry{
			PharmacistName: item.PharmacistName,
			FeedbackType:   item.FeedbackType,
			SectionName:    item.SectionName,
			Comment:        item.Comment,
			Approved:       item.Approved,
		}

		if item.CorrectedText != "" && item.OriginalText != "" {
			entry.Before = item.OriginalText
			entry.After = item.CorrectedText
			reason := item.Comment
			if reason == "" {
				reason = "Manual correction"
			}
			entry.Change = fmt.Sprintf("Updated %s: %s", item.SectionName, reason)
		} else if item.Comment != "" {
			entry.Change = item.Comment
		} else {
			entry.Change = fmt.Sprintf("%s on %s", item.FeedbackType, item.SectionName)
		}

		entries = append(entries, entry)

		if !item.Approved {
			status = models.StatusCorrectionsPending
		}
	}

	return entries, status
}
