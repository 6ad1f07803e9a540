package assessment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saulo-duarte/chronos-prep/internal/config"
)

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTopicNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	config.JSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.WithContext(r.Context()).WithError(err).Warn("Invalid request body")
		config.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) ListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, sets)
}

func (h *Handler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	var dto CreateInterviewDTO
	if !decode(w, r, &dto) {
		return
	}
	set, err := h.service.CreateInterview(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusCreated, set)
}

func (h *Handler) CreatePractice(w http.ResponseWriter, r *http.Request) {
	var dto CreatePracticeDTO
	if !decode(w, r, &dto) {
		return
	}
	set, err := h.service.CreatePractice(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusCreated, set)
}

func (h *Handler) GetSet(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, set)
}

func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Regenerate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusAccepted, map[string]bool{"generating": true})
}

// SaveProgress accepts PATCH from the app and POST from beacon clients.
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var in ProgressInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.service.SaveProgress(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, res)
}

func (h *Handler) Retake(w http.ResponseWriter, r *http.Request) {
	var in RetakeInput
	if r.ContentLength != 0 && !decode(w, r, &in) {
		return
	}
	if err := h.service.Retake(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) LatestResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.LatestResult(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("topic_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	config.JSON(w, http.StatusOK, res)
}
