package types

import "time"

// ReportDraft is a report authored on the client that has not yet been
// acknowledged by the ingestion service.
type ReportDraft struct {
	HazardType          HazardType `json:"hazardType"`
	Severity            Severity   `json:"severity"`
	Description         string     `json:"description"`
	LocationDescription string     `json:"locationDescription"`
	Latitude            string     `json:"latitude"`
	Longitude           string     `json:"longitude"`
	TimeOfObservation   string     `json:"timeOfObservation"`
	Media               *Media     `json:"media,omitempty"`
	DeviceInfo          DeviceInfo `json:"deviceInfo"`
}

// NewReportDraft returns a draft with the form defaults applied.
func NewReportDraft() ReportDraft {
	return ReportDraft{
		Severity: SeverityMedium,
	}
}

// Media is the single optional attachment of a draft. Data is base64 encoded
// when the draft is persisted to the offline queue.
type Media struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type DeviceInfo struct {
	UserAgent string `json:"userAgent"`
	Language  string `json:"language"`
}

// QueuedReport is a draft waiting in the offline queue.
type QueuedReport struct {
	ID         string      `json:"id"`
	Draft      ReportDraft `json:"draft"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
}
