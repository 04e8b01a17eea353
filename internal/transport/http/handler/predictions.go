package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/neuroscan-api/internal/application/prediction"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/transport/http/middleware"
)

var predictMessages = messages{
	domain.ErrBadRequest:  "Invalid file format. Please upload JPG or PNG image",
	domain.ErrUpstream:    "Error processing image",
	domain.ErrUnavailable: "Prediction service unavailable",
	nil:                   "Error processing image",
}

// PredictionHandler serves classification uploads, history and stored scans.
type PredictionHandler struct {
	svc       prediction.Service
	maxUpload int64
}

func NewPredictionHandler(svc prediction.Service, maxUpload int64) *PredictionHandler {
	return &PredictionHandler{svc: svc, maxUpload: maxUpload}
}

func (h *PredictionHandler) PredictAnonymous(w http.ResponseWriter, r *http.Request) {
	h.predict(w, r, "")
}

func (h *PredictionHandler) PredictAuthenticated(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	h.predict(w, r, accountID)
}

func (h *PredictionHandler) predict(w http.ResponseWriter, r *http.Request, accountID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	p, err := h.svc.Predict(r.Context(), accountID, prediction.Upload{Filename: hdr.Filename, Data: data})
	if err != nil {
		httpError(w, err, predictMessages)
		return
	}
	writeJSON(w, http.StatusOK, PredictEnvelope{Result: p.Result})
}

func (h *PredictionHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.svc.List(r.Context(), accountID, page, limit)
	if err != nil {
		httpError(w, err, nil)
		return
	}
	views := make([]*PredictionView, len(res.Predictions))
	for i := range res.Predictions {
		views[i] = toPredictionView(&res.Predictions[i])
	}
	writeJSON(w, http.StatusOK, PredictionPageEnvelope{
		Predictions: views,
		Total:       res.Total,
		Page:        res.Page,
		Limit:       res.Limit,
		TotalPages:  res.TotalPages,
	})
}

func (h *PredictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	p, err := h.svc.Get(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err, messages{domain.ErrNotFound: "Prediction not found"})
		return
	}
	writeJSON(w, http.StatusOK, toPredictionView(p))
}

func (h *PredictionHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	s, err := h.svc.Statistics(r.Context(), accountID)
	if err != nil {
		httpError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsEnvelope{
		TotalPredictions:   s.TotalPredictions,
		TumorPredictions:   s.TumorPredictions,
		NoTumorPredictions: s.NoTumorPredictions,
		TumorPercentage:    s.TumorPercentage,
		NoTumorPercentage:  s.NoTumorPercentage,
		MostRecent:         toPredictionView(s.MostRecent),
	})
}

// Image streams an uploaded scan back by its stored name.
func (h *PredictionHandler) Image(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, err := h.svc.OpenImage(r.Context(), name)
	if err != nil {
		httpError(w, err, messages{domain.ErrNotFound: "Image not found"})
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
