package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/diagnose"
	"github.com/arogya-labs/voicedx/internal/pipeline"
	"github.com/arogya-labs/voicedx/internal/ports"
	"github.com/arogya-labs/voicedx/internal/speech"
)

type stubTranscriber struct{ text string }

func (s *stubTranscriber) Transcribe(ctx context.Context, rec *capture.Recording) (string, error) {
	return s.text, nil
}

type stubAnalyzer struct{ result diagnose.Result }

func (s *stubAnalyzer) Analyze(ctx context.Context, image []byte, imageMIME, questionText string) (diagnose.Result, error) {
	return s.result, nil
}

type stubSynth struct{ artifact speech.Artifact }

func (s *stubSynth) Synthesize(ctx context.Context, text string) (speech.Artifact, error) {
	return s.artifact, nil
}

type stubRecords struct {
	saveErr error
	list    []ports.Diagnosis
}

func (s *stubRecords) Save(ctx context.Context, d *ports.Diagnosis, voiceQuery string) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	return 7, nil
}

func (s *stubRecords) GetByID(ctx context.Context, id int64) (*ports.Diagnosis, error) {
	if len(s.list) == 0 {
		return nil, errors.New("sql: no rows in result set")
	}
	return &s.list[0], nil
}

func (s *stubRecords) ListByUser(ctx context.Context, userID string) ([]ports.Diagnosis, error) {
	return s.list, nil
}

type stubStorage struct{}

func (s *stubStorage) ObjectKey(userID, filename string) string { return userID + "/" + filename }

func (s *stubStorage) SaveImage(ctx context.Context, userID string, file io.Reader, filename, contentType string) (string, error) {
	return "https://cdn.test/" + filename, nil
}

func (s *stubStorage) SaveNarration(ctx context.Context, userID string, audio []byte, filename string) (string, error) {
	return "https://cdn.test/" + filename, nil
}

type stubNotifier struct{}

func (s *stubNotifier) Notify(ctx context.Context, err error, details string) error { return nil }

func testRouter(records *stubRecords) *chi.Mux {
	pipe := pipeline.New(
		&stubTranscriber{text: "I have a persistent cough"},
		&stubAnalyzer{result: diagnose.Result{
			Diagnosis:   "Mild bronchitis",
			Confidence:  0.82,
			Explanation: "With what I see, I think you have mild bronchitis.",
		}},
		&stubSynth{artifact: speech.Artifact{Kind: speech.ArtifactPrimary, Audio: []byte("mp3"), MIME: "audio/mpeg"}},
		records,
		&stubStorage{},
		&stubNotifier{},
	)

	zl := logger.NewZapLogger(zap.NewNop().Sugar())

	r := chi.NewRouter()
	RegisterRoutes(r,
		NewDiagnosisHandler(pipe, records, zl),
		NewCaptureHandler(pipe, capture.NewMemoryDevice([]byte("oggdata"), "audio/ogg")),
	)
	return r
}

func diagnoseRequest(t *testing.T, withAudio, withImage bool) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	_ = mw.WriteField("user_id", "user-1")
	_ = mw.WriteField("patient_name", "John Carter")

	if withAudio {
		part, err := filePart(mw, "audio", "question.ogg", "audio/ogg")
		if err != nil {
			t.Fatalf("audio part: %v", err)
		}
		part.Write([]byte("oggdata"))
	}
	if withImage {
		part, err := filePart(mw, "image", "chest_xray.jpg", "image/jpeg")
		if err != nil {
			t.Fatalf("image part: %v", err)
		}
		part.Write([]byte("jpegdata"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDiagnose_OK(t *testing.T) {
	r := testRouter(&stubRecords{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, diagnoseRequest(t, true, true))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		DiagnosisID int64   `json:"diagnosis_id"`
		Transcript  string  `json:"transcript"`
		Diagnosis   string  `json:"diagnosis"`
		Confidence  float64 `json:"confidence"`
		Narration   string  `json:"narration"`
		Stages      []struct {
			Stage string `json:"stage"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.DiagnosisID != 7 {
		t.Errorf("diagnosis_id = %d", resp.DiagnosisID)
	}
	if resp.Transcript != "I have a persistent cough" {
		t.Errorf("transcript = %q", resp.Transcript)
	}
	if resp.Confidence != 0.82 {
		t.Errorf("confidence = %v", resp.Confidence)
	}
	if resp.Narration != "primary" {
		t.Errorf("narration = %q", resp.Narration)
	}
	if len(resp.Stages) == 0 || resp.Stages[len(resp.Stages)-1].Stage != "completed" {
		t.Errorf("stage trail = %+v", resp.Stages)
	}
}

func TestDiagnose_MissingImage(t *testing.T) {
	r := testRouter(&stubRecords{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, diagnoseRequest(t, true, false))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDiagnose_PersistenceFailureStillReturnsResult(t *testing.T) {
	r := testRouter(&stubRecords{saveErr: errors.New("insert failed")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, diagnoseRequest(t, true, true))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	// диагноз не теряется даже при провале записи
	var resp struct {
		Diagnosis string `json:"diagnosis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Diagnosis != "Mild bronchitis" {
		t.Errorf("diagnosis = %q", resp.Diagnosis)
	}
}

func TestListByUser(t *testing.T) {
	records := &stubRecords{list: []ports.Diagnosis{{ID: 1, UserID: "user-1", Diagnosis: "x"}}}
	r := testRouter(records)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnoses?user_id=user-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var list []ports.Diagnosis
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	r := testRouter(&stubRecords{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnoses/99", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCaptureFlow(t *testing.T) {
	r := testRouter(&stubRecords{})

	// start
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/capture/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}

	// второй start при живом прогоне
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/capture/start", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", w.Code)
	}

	// clear откатывает в idle — start снова проходит
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/capture/clear", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/capture/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("start after clear status = %d", w.Code)
	}
}

// multipart helper: файл с явным Content-Type
func filePart(mw *multipart.Writer, field, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}
