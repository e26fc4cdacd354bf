package delivery

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/pipeline"
	"github.com/arogya-labs/voicedx/internal/ports"
	"github.com/arogya-labs/voicedx/internal/speech"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

type DiagnosisHandler struct {
	pipe    *pipeline.Pipeline
	records ports.DiagnosisService
	log     *logger.ZapLogger

	mu     sync.Mutex
	events []pipeline.Event
}

func NewDiagnosisHandler(pipe *pipeline.Pipeline, records ports.DiagnosisService, log *logger.ZapLogger) *DiagnosisHandler {
	h := &DiagnosisHandler{
		pipe:    pipe,
		records: records,
		log:     log,
	}

	pipe.OnEvent(func(ev pipeline.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		if len(h.events) > 256 {
			h.events = h.events[len(h.events)-256:]
		}
		h.mu.Unlock()
	})

	return h
}

type diagnoseResponse struct {
	RunID        string           `json:"run_id"`
	DiagnosisID  int64            `json:"diagnosis_id,omitempty"`
	Transcript   string           `json:"transcript"`
	Diagnosis    string           `json:"diagnosis"`
	Confidence   float64          `json:"confidence"`
	Explanation  string           `json:"explanation"`
	NarrationURL string           `json:"narration_url,omitempty"`
	Narration    string           `json:"narration"` // "primary" | "fallback" | "none"
	Warnings     []string         `json:"warnings,omitempty"`
	Stages       []pipeline.Event `json:"stages"`
}

// Diagnose — аплоад-путь: аудио + снимок одним multipart, прогон
// целиком в рамках запроса.
func (h *DiagnosisHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		http.Error(w, "invalid multipart: "+err.Error(), http.StatusBadRequest)
		return
	}

	userID := r.FormValue("user_id")
	patientName := r.FormValue("patient_name")
	if userID == "" || patientName == "" {
		http.Error(w, "missing user_id or patient_name", http.StatusBadRequest)
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "missing audio: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer audioFile.Close()

	audio, err := io.ReadAll(audioFile)
	if err != nil {
		http.Error(w, "read audio: "+err.Error(), http.StatusBadRequest)
		return
	}

	imageFile, imageHeader, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer imageFile.Close()

	imageMIME := imageHeader.Header.Get("Content-Type")
	if !allowedImageTypes[imageMIME] {
		http.Error(w, "unsupported image type: "+imageMIME, http.StatusBadRequest)
		return
	}

	image, err := io.ReadAll(imageFile)
	if err != nil {
		http.Error(w, "read image: "+err.Error(), http.StatusBadRequest)
		return
	}

	audioMIME := audioHeader.Header.Get("Content-Type")
	if audioMIME == "" {
		audioMIME = "audio/ogg"
	}
	device := capture.NewMemoryDevice(audio, audioMIME)

	run, err := h.pipe.Start(r.Context(), device)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			http.Error(w, "a diagnosis run is already in progress", http.StatusConflict)
			return
		}
		http.Error(w, "start failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	run, err = h.pipe.Complete(r.Context(), pipeline.Input{
		UserID:        userID,
		PatientName:   patientName,
		Image:         image,
		ImageMIME:     imageMIME,
		ImageFilename: imageHeader.Filename,
	})
	if err != nil {
		h.writeRunError(w, run, err)
		return
	}

	h.writeRun(w, run, http.StatusOK)
}

func (h *DiagnosisHandler) writeRunError(w http.ResponseWriter, run *pipeline.Run, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, pipeline.ErrMissingInput):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrPersistenceFailed):
		// результат уже есть, его нельзя терять — отдаём вместе с ошибкой
		h.log.Log(logger.LogEntry{Level: "error", Message: "persistence failed", Error: err})
		h.writeRun(w, run, http.StatusInternalServerError)
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *DiagnosisHandler) writeRun(w http.ResponseWriter, run *pipeline.Run, status int) {
	resp := diagnoseResponse{
		RunID:        run.ID,
		DiagnosisID:  run.DiagnosisID(),
		Transcript:   run.Transcript(),
		NarrationURL: run.NarrationURL(),
		Narration:    "none",
		Warnings:     run.Warnings(),
		Stages:       h.stagesFor(run.ID),
	}
	if res := run.Result(); res != nil {
		resp.Diagnosis = res.Diagnosis
		resp.Confidence = res.Confidence
		resp.Explanation = res.Explanation
	}
	if a := run.Artifact(); a != nil {
		if a.Kind == speech.ArtifactFallback {
			resp.Narration = "fallback"
		} else {
			resp.Narration = "primary"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *DiagnosisHandler) stagesFor(runID string) []pipeline.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var trail []pipeline.Event
	for _, ev := range h.events {
		if ev.RunID == runID {
			trail = append(trail, ev)
		}
	}
	return trail
}

func (h *DiagnosisHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	d, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.log.Log(logger.LogEntry{Level: "error", Message: "db error", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d)
}

func (h *DiagnosisHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	list, err := h.records.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "db error", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
