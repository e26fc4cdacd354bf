package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/diagnose"
	"github.com/arogya-labs/voicedx/internal/notify"
	"github.com/arogya-labs/voicedx/internal/ports"
	"github.com/arogya-labs/voicedx/internal/speech"
	"github.com/arogya-labs/voicedx/internal/transcribe"
)

var (
	ErrRunInProgress     = errors.New("pipeline run already in progress")
	ErrMissingInput      = errors.New("missing image or transcription")
	ErrPersistenceFailed = errors.New("persistence failed")
)

const (
	transcribeTimeout = 60 * time.Second
	synthesizeTimeout = 90 * time.Second
	persistTimeout    = 30 * time.Second
)

// Input — снимок и метаданные, которые приходят вместе с голосовым
// вопросом. Неизменяем в пределах прогона.
type Input struct {
	UserID        string
	PatientName   string
	Image         []byte
	ImageMIME     string
	ImageFilename string
}

// Pipeline гоняет стадии строго последовательно, один прогон
// единовременно. Синтез — единственная стадия, чей провал не
// валит прогон.
type Pipeline struct {
	transcriber transcribe.Client
	analyzer    diagnose.Client
	synthesizer speech.Synthesizer
	records     ports.DiagnosisService
	storage     ports.S3Service
	notifier    notify.Notificator

	mu      sync.Mutex
	session *capture.Session
	current *Run
	onEvent func(Event)
}

func New(
	transcriber transcribe.Client,
	analyzer diagnose.Client,
	synthesizer speech.Synthesizer,
	records ports.DiagnosisService,
	storage ports.S3Service,
	notifier notify.Notificator,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		records:     records,
		storage:     storage,
		notifier:    notifier,
	}
}

// OnEvent регистрирует колбэк прогресса. Вызывается синхронно на
// каждом переходе.
func (p *Pipeline) OnEvent(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEvent = fn
}

func (p *Pipeline) Current() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Start — idle → capturing. Второй прогон поверх живого не даём.
func (p *Pipeline) Start(ctx context.Context, device capture.Device) (*Run, error) {
	p.mu.Lock()
	if p.current != nil && !p.current.terminal() {
		p.mu.Unlock()
		return nil, ErrRunInProgress
	}

	run := newRun()
	// стадию выставляем до публикации, чтобы конкурентный Start не
	// увидел прогон в idle и не перетёр его
	run.stage = StageCapturing
	session := capture.NewSession(device)
	p.current = run
	p.session = session
	p.mu.Unlock()

	p.emit(run, StageCapturing, nil)

	if err := session.Start(ctx); err != nil {
		p.fail(run, err)
		return run, err
	}

	log.Printf("[pipeline] run=%s capturing", run.ID)
	return run, nil
}

// Abort — сброс посреди записи: устройство освобождается, прогон
// откатывается в idle.
func (p *Pipeline) Abort() {
	p.mu.Lock()
	session := p.session
	run := p.current
	p.mu.Unlock()

	if session == nil || run == nil {
		return
	}
	if !run.claimAbort() {
		return
	}

	session.Clear()
	p.emit(run, StageIdle, nil)
	log.Printf("[pipeline] run=%s aborted mid-capture", run.ID)
}

// Complete останавливает запись и прогоняет оставшиеся стадии.
func (p *Pipeline) Complete(ctx context.Context, in Input) (*Run, error) {
	p.mu.Lock()
	run := p.current
	session := p.session
	p.mu.Unlock()

	// проверка стадии и захват прогона — одним атомарным шагом:
	// проигравший из двух конкурентных Complete уходит ни с чем,
	// не трогая сессию и живой прогон
	if run == nil || !run.claimCompletion() {
		return run, capture.ErrNoActiveCapture
	}

	// --- stop capture ---
	rec, err := session.Stop()
	if err != nil {
		p.fail(run, err)
		return run, err
	}
	if len(rec.Bytes()) == 0 {
		err := fmt.Errorf("%w: empty recording", ErrMissingInput)
		p.fail(run, err)
		return run, err
	}
	run.mu.Lock()
	run.recording = rec
	run.mu.Unlock()

	// --- transcribing ---
	p.transition(run, StageTranscribing)

	ctxSTT, cancelSTT := context.WithTimeout(ctx, transcribeTimeout)
	text, err := p.transcriber.Transcribe(ctxSTT, rec)
	cancelSTT()
	if err != nil {
		p.fail(run, err)
		return run, err
	}
	run.mu.Lock()
	run.transcript = text
	run.mu.Unlock()
	log.Printf("[pipeline] run=%s transcribed: %q", run.ID, text)

	// --- analyzing ---
	if len(in.Image) == 0 || text == "" {
		err := ErrMissingInput
		p.fail(run, err)
		return run, err
	}
	p.transition(run, StageAnalyzing)

	result, err := p.analyzer.Analyze(ctx, in.Image, in.ImageMIME, text)
	if err != nil {
		p.fail(run, err)
		return run, err
	}
	run.mu.Lock()
	run.result = &result
	run.mu.Unlock()
	log.Printf("[pipeline] run=%s diagnosis=%q confidence=%.2f", run.ID, result.Diagnosis, result.Confidence)

	// --- synthesizing: провал не фатален ---
	p.transition(run, StageSynthesizing)

	ctxTTS, cancelTTS := context.WithTimeout(ctx, synthesizeTimeout)
	artifact, err := p.synthesizer.Synthesize(ctxTTS, result.Explanation)
	cancelTTS()
	if err != nil {
		p.warn(run, fmt.Sprintf("synthesis skipped: %v", err))
	} else {
		run.mu.Lock()
		run.artifact = &artifact
		run.mu.Unlock()
		log.Printf("[pipeline] run=%s synthesized (%s)", run.ID, artifact.Kind)
	}

	// --- persisting ---
	p.transition(run, StagePersisting)

	ctxDB, cancelDB := context.WithTimeout(ctx, persistTimeout)
	err = p.persist(ctxDB, run, in)
	cancelDB()
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		p.fail(run, wrapped)
		return run, wrapped
	}

	p.transition(run, StageCompleted)
	log.Printf("[pipeline] run=%s completed, diagnosis_id=%d", run.ID, run.DiagnosisID())
	return run, nil
}

// persist: ассеты в S3, потом диагноз + audit одной транзакцией
func (p *Pipeline) persist(ctx context.Context, run *Run, in Input) error {
	imageURL, err := p.storage.SaveImage(ctx, in.UserID,
		bytes.NewReader(in.Image), in.ImageFilename, in.ImageMIME)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}

	narrationURL := ""
	if a := run.Artifact(); a != nil && a.Kind == speech.ArtifactPrimary {
		narrationURL, err = p.storage.SaveNarration(ctx, in.UserID,
			a.Audio, fmt.Sprintf("narration_%s.mp3", run.ID))
		if err != nil {
			// озвучка — вторичный ассет, без неё запись валидна
			p.warn(run, fmt.Sprintf("narration upload skipped: %v", err))
			narrationURL = ""
		}
	}

	result := run.Result()
	record := &ports.Diagnosis{
		UserID:          in.UserID,
		PatientName:     in.PatientName,
		ImageURL:        imageURL,
		Diagnosis:       result.Diagnosis,
		ConfidenceScore: result.Confidence,
		Explanation:     result.Explanation,
	}

	id, err := p.records.Save(ctx, record, run.Transcript())
	if err != nil {
		return err
	}

	run.mu.Lock()
	run.imageURL = imageURL
	run.narrationURL = narrationURL
	run.diagnosisID = id
	run.mu.Unlock()
	return nil
}

func (p *Pipeline) transition(run *Run, stage Stage) {
	run.mu.Lock()
	run.stage = stage
	run.mu.Unlock()
	p.emit(run, stage, nil)
}

func (p *Pipeline) fail(run *Run, err error) {
	run.mu.Lock()
	run.stage = StageFailed
	run.err = err
	run.mu.Unlock()

	p.emit(run, StageFailed, err)
	p.notifier.Notify(context.Background(), err,
		fmt.Sprintf("Прогон %s упал: %v", run.ID, err))
	log.Printf("[pipeline] run=%s failed: %v", run.ID, err)
}

func (p *Pipeline) warn(run *Run, msg string) {
	run.mu.Lock()
	run.warnings = append(run.warnings, msg)
	run.mu.Unlock()
	log.Printf("[pipeline] run=%s warn: %s", run.ID, msg)
}

func (p *Pipeline) emit(run *Run, stage Stage, err error) {
	p.mu.Lock()
	fn := p.onEvent
	p.mu.Unlock()

	if fn == nil {
		return
	}
	ev := Event{RunID: run.ID, Stage: stage, At: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	fn(ev)
}
