package domain

import "time"

// DailyStats stores aggregated pipeline metrics for a specific day.
type DailyStats struct {
	Day             time.Time
	Requests        int
	Successes       int
	Failures        int
	ImagesGenerated int
	VideosGenerated int
	AudioGenerated  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
