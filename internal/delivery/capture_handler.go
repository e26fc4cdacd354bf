package delivery

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/pipeline"
)

// CaptureHandler — путь с серверным микрофоном: start пишет с
// устройства, complete финализирует и гонит пайплайн, clear
// сбрасывает запись.
type CaptureHandler struct {
	pipe   *pipeline.Pipeline
	device capture.Device
}

func NewCaptureHandler(pipe *pipeline.Pipeline, device capture.Device) *CaptureHandler {
	return &CaptureHandler{
		pipe:   pipe,
		device: device,
	}
}

func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	run, err := h.pipe.Start(r.Context(), h.device)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			http.Error(w, "run already in progress", http.StatusConflict)
		case errors.Is(err, capture.ErrDeviceUnavailable):
			http.Error(w, "device unavailable: "+err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id": run.ID,
		"stage":  run.Stage(),
	})
}

func (h *CaptureHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.pipe.Abort()
	w.WriteHeader(http.StatusNoContent)
}

// Complete — стоп записи + снимок: дальше пайплайн едет сам
func (h *CaptureHandler) Complete(w http.ResponseWriter, r *http.Request) {
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

	run, err := h.pipe.Complete(r.Context(), pipeline.Input{
		UserID:        userID,
		PatientName:   patientName,
		Image:         image,
		ImageMIME:     imageMIME,
		ImageFilename: imageHeader.Filename,
	})
	if err != nil {
		if errors.Is(err, capture.ErrNoActiveCapture) {
			http.Error(w, "no active capture", http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"run_id": runID(run),
			"error":  err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id":       run.ID,
		"stage":        run.Stage(),
		"diagnosis_id": run.DiagnosisID(),
	})
}

func runID(run *pipeline.Run) string {
	if run == nil {
		return ""
	}
	return run.ID
}
