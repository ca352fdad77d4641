package domain

import "time"

// MediaKind enumerates the media a generation job can produce.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// PostType enumerates the content formats assembled around the media.
type PostType string

const (
	PostProduct   PostType = "product"
	PostContent   PostType = "content"
	PostPersona   PostType = "persona"
	PostComposite PostType = "composite"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

// ReferenceRole tags how an uploaded image participates in generation.
type ReferenceRole string

const (
	RoleBackground ReferenceRole = "background"
	RoleAsset      ReferenceRole = "asset"
	RoleStartFrame ReferenceRole = "start_frame"
)

// JobReference is one uploaded reference image inside a job payload. Data is
// carried base64-encoded so the payload round-trips through the jobs table.
type JobReference struct {
	DataBase64 string        `json:"data_base64"`
	MIME       string        `json:"mime"`
	Name       string        `json:"name,omitempty"`
	Role       ReferenceRole `json:"role"`
}

// JobPayload is the immutable generation request captured at submit time.
type JobPayload struct {
	Kind               MediaKind      `json:"kind"`
	PostType           PostType       `json:"post_type"`
	Prompt             string         `json:"prompt"`
	ProductName        string         `json:"product_name,omitempty"`
	ProductDescription string         `json:"product_description,omitempty"`
	MarketingVibe      string         `json:"marketing_vibe,omitempty"`
	References         []JobReference `json:"references,omitempty"`
	AspectRatio        string         `json:"aspect_ratio"`
	Resolution         string         `json:"resolution,omitempty"`
	DurationSeconds    int            `json:"duration_seconds,omitempty"`
	Locale             string         `json:"locale,omitempty"`
}

// Job encapsulates one asynchronous generation run from enqueue to terminal
// state. Tokens are settled before the job row exists, so workers never touch
// the ledger.
type Job struct {
	ID           string
	AccountID    string
	Kind         MediaKind
	PostType     PostType
	Status       JobStatus
	PayloadJSON  []byte
	Cost         int
	FailureKind  FailureKind
	ErrorMessage string
	RetryOf      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
