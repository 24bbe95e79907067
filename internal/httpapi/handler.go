// Package httpapi implements the HTTP handlers for the profile service.
//
// Mutating routes expect an x-user-id header forwarded by the Gateway; it is
// recorded as the actor of imports and merges.
//
// Routes:
//
//	GET    /profiles                 → list active profiles (?all=true includes inactive)
//	GET    /profiles/{id}            → one profile
//	PATCH  /profiles/{id}            → partial update
//	DELETE /profiles/{id}            → deactivate (?hard=true deletes)
//	POST   /profiles/merge           → fold secondaryId into primaryId
//	POST   /import/preview           → decide every CSV row, write nothing
//	POST   /import/process           → run the import
//	GET    /export                   → active profiles as CSV
//	GET    /health                   → liveness
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"frs/profile-service/internal/importer"
	"frs/profile-service/internal/model"
	"frs/profile-service/internal/profile"
)

const maxUploadBytes = 32 << 20

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	svc *profile.Service
	imp *importer.Importer
}

// NewHandler returns a configured Handler.
func NewHandler(svc *profile.Service, imp *importer.Importer) *Handler {
	return &Handler{svc: svc, imp: imp}
}

// RegisterRoutes mounts all profile-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/profiles", h.handleProfiles)
	mux.HandleFunc("/profiles/", h.handleProfile)
	mux.HandleFunc("/import/preview", h.handleImport(false))
	mux.HandleFunc("/import/process", h.handleImport(true))
	mux.HandleFunc("/export", h.handleExport)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		jsonOK(w, map[string]string{"status": "ok"})
	})
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleProfiles handles GET /profiles
func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	profiles, err := h.svc.List(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		writeError(w, "listProfiles", err)
		return
	}
	jsonOK(w, profiles)
}

// handleProfile handles /profiles/merge and /profiles/{id}
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/profiles/"), "/")
	if rest == "merge" {
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.mergeProfiles(w, r)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r, id)
	case http.MethodPatch:
		h.updateProfile(w, r, id)
	case http.MethodDelete:
		h.deleteProfile(w, r, id)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "getProfile", err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, id int64) {
	if requireActor(w, r) == "" {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	patch, err := DecodePatch(body)
	if err != nil {
		writeError(w, "updateProfile", err)
		return
	}

	p, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, "updateProfile", err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request, id int64) {
	if requireActor(w, r) == "" {
		return
	}

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.svc.Delete(r.Context(), id)
	} else {
		err = h.svc.Deactivate(r.Context(), id)
	}
	if err != nil {
		writeError(w, "deleteProfile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mergeProfiles(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	var body struct {
		PrimaryID   int64 `json:"primaryId"`
		SecondaryID int64 `json:"secondaryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PrimaryID <= 0 || body.SecondaryID <= 0 {
		jsonError(w, "primaryId and secondaryId are required", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Merge(r.Context(), body.PrimaryID, body.SecondaryID, actor)
	if err != nil {
		writeError(w, "mergeProfiles", err)
		return
	}
	jsonOK(w, p)
}

// handleImport serves /import/preview and /import/process. The CSV comes as
// a multipart "file" part or as the raw request body.
func (h *Handler) handleImport(apply bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		actor := r.Header.Get("x-user-id")
		if apply && requireActor(w, r) == "" {
			return
		}

		q := r.URL.Query()
		opts := importer.Options{
			MatchMode:    importer.MatchMode(q.Get("match")),
			Mode:         importer.ImportMode(q.Get("mode")),
			ImportImages: q.Get("images") == "true",
			Actor:        actor,
		}

		src, err := uploadBody(w, r)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer src.Close()

		if !apply {
			preview, err := h.imp.Preview(r.Context(), src, opts)
			if err != nil {
				writeError(w, "previewImport", err)
				return
			}
			jsonOK(w, preview)
			return
		}

		result, err := h.imp.Process(r.Context(), src, opts)
		if err != nil {
			writeError(w, "processImport", err)
			return
		}
		log.Printf("[profile] import %s by %s: created=%d updated=%d skipped=%d errors=%d",
			result.RunID, actor, result.Created, result.Updated, result.Skipped, result.Errors)
		jsonOK(w, result)
	}
}

// handleExport handles GET /export
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="profiles.csv"`)
	if _, err := h.svc.ExportCSV(r.Context(), w); err != nil {
		// Headers are gone by now; all we can do is log.
		log.Printf("[profile] export error: %v", err)
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("invalid multipart body: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file part")
		}
		return f, nil
	}
	return r.Body, nil
}

// DecodePatch converts a PATCH body keyed by canonical field names into a
// Patch. Array fields accept a JSON array or a "|" / "," separated string.
func DecodePatch(body map[string]json.RawMessage) (model.Patch, error) {
	patch := model.NewPatch()
	for key, raw := range body {
		switch {
		case key == "is_active" || key == "isActive":
			var v bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return patch, &profile.ValidationError{Msg: key + " must be a boolean"}
			}
			patch.IsActive = &v

		case model.IsScalarField(key):
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return patch, &profile.ValidationError{Msg: key + " must be a string"}
			}
			patch.Strings[key] = strings.TrimSpace(v)

		case model.IsListField(key):
			var list []string
			if err := json.Unmarshal(raw, &list); err == nil {
				patch.Lists[key] = list
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return patch, &profile.ValidationError{Msg: key + " must be an array or a string"}
			}
			patch.Lists[key] = importer.SplitList(s)

		default:
			return patch, &profile.ValidationError{Msg: fmt.Sprintf("unknown field %q", key)}
		}
	}
	return patch, nil
}

func requireActor(w http.ResponseWriter, r *http.Request) string {
	actor := r.Header.Get("x-user-id")
	if actor == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
	}
	return actor
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		pve *profile.ValidationError
		ive *importer.ValidationError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &pve), errors.As(err, &ive):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, importer.ErrNoHeader):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &mbe):
		jsonError(w, "upload too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, profile.ErrNotFound):
		jsonError(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, profile.ErrDuplicateEmail):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("[profile] %s error: %v", op, err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
