package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"adstudio/pkg/zip"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ArtifactDownload streams the stored media of one artifact.
func (a *App) ArtifactDownload(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	artifactID := chi.URLParam(r, "artifact_id")
	artifact, err := a.Artifacts.GetForAccount(r.Context(), artifactID, accountID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	data, err := a.Blobs.Read(r.Context(), artifact.StorageKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("artifact_id", artifactID).Msg("artifact blob missing")
		a.error(w, http.StatusNotFound, "not_found", "artifact media unavailable")
		return
	}
	w.Header().Set("Content-Type", artifact.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ArtifactBundle packs the media and its caption into one zip download.
func (a *App) ArtifactBundle(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	artifactID := chi.URLParam(r, "artifact_id")
	artifact, err := a.Artifacts.GetForAccount(r.Context(), artifactID, accountID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	data, err := a.Blobs.Read(r.Context(), artifact.StorageKey)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "artifact media unavailable")
		return
	}
	mediaName := artifact.StorageKey
	if idx := strings.LastIndex(mediaName, "/"); idx >= 0 {
		mediaName = mediaName[idx+1:]
	}
	assets := []zip.Asset{
		{Filename: mediaName, MIME: artifact.MIME, Data: data},
		{Filename: "caption.txt", MIME: "text/plain", Data: []byte(artifact.TextBody)},
	}
	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build bundle")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zip.BundleName(artifact.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// History lists the caller's artifacts, newest first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	artifacts, err := a.Artifacts.ListByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("history query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	items := make([]map[string]any, 0, len(artifacts))
	for _, artifact := range artifacts {
		item := map[string]any{
			"id":           artifact.ID,
			"job_id":       artifact.JobID,
			"kind":         artifact.Kind,
			"post_type":    artifact.PostType,
			"mime":         artifact.MIME,
			"text_body":    artifact.TextBody,
			"aspect_ratio": artifact.AspectRatio,
			"created_at":   artifact.CreatedAt,
		}
		if artifact.AdaptedKey != "" {
			item["adapted"] = true
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}
