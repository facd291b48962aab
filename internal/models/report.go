package models

// ImportReport is the outcome of one parcel import request.
// Errors and Warnings are always non-nil so they serialize as empty arrays.
type ImportReport struct {
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	Details        string   `json:"details,omitempty"`
	ParcelsCreated int      `json:"parcelsCreated"`
	Success        bool     `json:"success"`
}

// NewImportReport returns an empty report.
func NewImportReport() *ImportReport {
	return &ImportReport{
		Errors:   []string{},
		Warnings: []string{},
	}
}

// FailedImportReport returns a report for an import that was rejected as a whole.
func FailedImportReport(message, details string) *ImportReport {
	report := NewImportReport()
	report.Errors = append(report.Errors, message)
	report.Details = details
	return report
}
