package handlers

import "net/http"

const summaryWindowDays = 30

// StatsSummary reports aggregated pipeline counters for the trailing window.
func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Stats.Summary(r.Context(), summaryWindowDays)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats summary failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"window_days":      summaryWindowDays,
		"requests":         summary.Requests,
		"successes":        summary.Successes,
		"failures":         summary.Failures,
		"images_generated": summary.ImagesGenerated,
		"videos_generated": summary.VideosGenerated,
		"audio_generated":  summary.AudioGenerated,
	})
}
