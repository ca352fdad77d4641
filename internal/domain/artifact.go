package domain

import "time"

// Artifact is the finished, user-visible output of one generation run: media
// plus its caption or script. Partial artifacts are never persisted.
type Artifact struct {
	ID          string
	JobID       string
	AccountID   string
	Kind        MediaKind
	PostType    PostType
	StorageKey  string
	MIME        string
	TextBody    string
	AspectRatio string
	// AdaptedKey points at a post-hoc aspect-ratio conversion of the media,
	// when one has been produced. Empty otherwise.
	AdaptedKey string
	CreatedAt  time.Time
}
