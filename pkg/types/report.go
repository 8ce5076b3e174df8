package types

import (
	"encoding/json"
	"time"
)

type HazardType string

const (
	HazardTsunami        HazardType = "Tsunami"
	HazardStormSurge     HazardType = "Storm Surge"
	HazardHighWaves      HazardType = "High Waves"
	HazardRipCurrent     HazardType = "Rip Current"
	HazardAlgalBloom     HazardType = "Algal Bloom"
	HazardOilSpill       HazardType = "Oil Spill"
	HazardMarineDebris   HazardType = "Marine Debris"
	HazardCoastalErosion HazardType = "Coastal Erosion"
	HazardOther          HazardType = "Other Hazard"
)

var AllHazardTypes = []HazardType{
	HazardTsunami,
	HazardStormSurge,
	HazardHighWaves,
	HazardRipCurrent,
	HazardAlgalBloom,
	HazardOilSpill,
	HazardMarineDebris,
	HazardCoastalErosion,
	HazardOther,
}

func (h HazardType) Valid() bool {
	for _, v := range AllHazardTypes {
		if h == v {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow       Severity = "Low"
	SeverityMedium    Severity = "Medium"
	SeverityHigh      Severity = "High"
	SeverityEmergency Severity = "Extreme/Emergency"
)

var AllSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency}

func (s Severity) Valid() bool {
	for _, v := range AllSeverities {
		if s == v {
			return true
		}
	}
	return false
}

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusResolved ReportStatus = "resolved"
	ReportStatusRejected ReportStatus = "rejected"
)

// MediaKind classifies an attachment. A report without an attachment has a
// nil *MediaKind, which serialises as JSON null.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// IncidentReport is the durable server-side record of an accepted report.
type IncidentReport struct {
	ID                  string          `db:"id" json:"id"`
	HazardType          HazardType      `db:"hazard_type" json:"hazardType"`
	Severity            Severity        `db:"severity" json:"severity"`
	Description         string          `db:"description" json:"description"`
	LocationDescription string          `db:"location_description" json:"locationDescription"`
	Latitude            float64         `db:"latitude" json:"latitude"`
	Longitude           float64         `db:"longitude" json:"longitude"`
	TimeOfObservation   time.Time       `db:"time_of_observation" json:"timeOfObservation"`
	MediaURL            *string         `db:"media_url" json:"mediaUrl"`
	MediaType           *MediaKind      `db:"media_type" json:"mediaType"`
	Status              ReportStatus    `db:"status" json:"status"`
	DeviceInfo          json.RawMessage `db:"device_info" json:"deviceInfo,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`
}

// ReportPayload carries the raw multipart fields of an upload request. Every
// field is kept as the submitted string so the ingestion boundary can tell
// "missing" apart from "malformed".
type ReportPayload struct {
	HazardType          string `form:"hazardType" json:"hazardType"`
	Severity            string `form:"severity" json:"severity"`
	Description         string `form:"description" json:"description"`
	LocationDescription string `form:"locationDescription" json:"locationDescription"`
	Latitude            string `form:"latitude" json:"latitude"`
	Longitude           string `form:"longitude" json:"longitude"`
	TimeOfObservation   string `form:"timeOfObservation" json:"timeOfObservation"`
	DeviceInfo          string `form:"deviceInfo" json:"deviceInfo,omitempty"`
}

// Attachment is a single uploaded media file as declared by the client.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}
