package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/diagnose"
	"github.com/arogya-labs/voicedx/internal/speech"
)

type Stage string

const (
	StageIdle         Stage = "idle"
	StageCapturing    Stage = "capturing"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageSynthesizing Stage = "synthesizing"
	StagePersisting   Stage = "persisting"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// Event — сигнал о смене стадии для UI-индикатора
type Event struct {
	RunID string    `json:"run_id"`
	Stage Stage     `json:"stage"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Run — один сквозной прогон: захват → расшифровка → анализ →
// озвучка → запись. Держит ссылки на промежуточные результаты;
// после PersistenceFailed результат и артефакт остаются доступны.
type Run struct {
	ID string

	mu         sync.Mutex
	stage      Stage
	completing bool
	recording  *capture.Recording
	transcript string
	result     *diagnose.Result
	artifact   *speech.Artifact

	imageURL     string
	narrationURL string
	diagnosisID  int64
	warnings     []string
	err          error
}

func newRun() *Run {
	return &Run{
		ID:    uuid.NewString(),
		stage: StageIdle,
	}
}

func (r *Run) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Run) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

func (r *Run) Result() *diagnose.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Run) Artifact() *speech.Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact
}

func (r *Run) DiagnosisID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.diagnosisID
}

func (r *Run) NarrationURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.narrationURL
}

func (r *Run) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// terminal — из этих стадий можно стартовать новый прогон
func (r *Run) terminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage == StageIdle || r.stage == StageCompleted || r.stage == StageFailed
}

// claimCompletion атомарно забирает прогон из capturing под завершение.
// Второй конкурентный Complete (или Abort) получает false и не трогает
// прогон.
func (r *Run) claimCompletion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stage != StageCapturing || r.completing {
		return false
	}
	r.completing = true
	return true
}

// claimAbort атомарно откатывает capturing → idle. False, если прогон
// уже завершается или вышел из capturing.
func (r *Run) claimAbort() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stage != StageCapturing || r.completing {
		return false
	}
	r.stage = StageIdle
	return true
}
