package models

// OrderForm is one clinical-order submission. It drives care plan
// generation and lives only for the duration of a single request.
// Optional free-text fields use the empty string as "not provided";
// the sequences may be empty.
type OrderForm struct {
	PatientFirstName    string
	PatientLastName     string
	PatientMRN          string
	PrimaryDiagnosis    string
	ReferringProvider   string
	ProviderNPI         string
	MedicationName      string
	AdditionalDiagnoses []string
	MedicationHistory   []string
	PatientRecords      string
}

// Feedback kinds recognized by the aggregator. Other values are accepted
// at the boundary and simply contribute to no aggregation bucket.
const (
	FeedbackCorrection = "correction"
	FeedbackSuggestion = "suggestion"
	FeedbackApproval   = "approval"
)

// FeedbackItem is one pharmacist annotation against a generated care plan
// section. OriginalText and CorrectedText are only meaningful for
// corrections; a correction carrying both is a precise span replacement.
type FeedbackItem struct {
	PharmacistName string
	FeedbackType   string
	SectionName    string
	OriginalText   string
	CorrectedText  string
	Comment        string
	Approved       bool
}

// ApprovalStatus is the derived review state of a feedback batch.
type ApprovalStatus string

const (
	StatusApproved           ApprovalStatus = "approved"
	StatusCorrectionsPending ApprovalStatus = "corrections_pending"
)
