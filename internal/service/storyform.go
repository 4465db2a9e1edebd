package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
)

// StoryGenerator - клиент прокси (/api/chatgpt).
type StoryGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Clipboard interface {
	Write(ctx context.Context, text string) error
}

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// View is whatever renders the form: a terminal, a chat.
type View interface {
	Toast(kind ToastKind, message string)
	ScrollToStories()
}

type StoryFormConfig struct {
	// SurfaceGenerationErrors показывает тост при ошибке генерации.
	// По умолчанию выключено: ошибки сети только логируются.
	SurfaceGenerationErrors bool
	FeedbackDelay           time.Duration
	HistoryKey              string
	// Composer nil - шаблон по умолчанию
	Composer *domain.PromptComposer
}

type StoryFormDeps struct {
	Generator StoryGenerator
	Store     storage.Store
	Clipboard Clipboard
	View      View
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Config    StoryFormConfig
}

// StoryForm owns one user's form state. Safe for concurrent use; the mutex is
// never held across generator, store or clipboard calls.
type StoryForm struct {
	gen       StoryGenerator
	store     storage.Store
	clipboard Clipboard
	view      View
	logger    *zap.Logger
	metrics   *metrics.Metrics
	cfg       StoryFormConfig

	mountOnce sync.Once

	mu      sync.Mutex
	fields  domain.FormInput
	history domain.History
	status  domain.Status
	copied  string
	timer   *time.Timer
	copyGen uint64
	closed  bool
}

func NewStoryForm(deps StoryFormDeps) *StoryForm {
	if deps.Config.FeedbackDelay <= 0 {
		deps.Config.FeedbackDelay = domain.ClipboardFeedbackDelay
	}
	if deps.Config.HistoryKey == "" {
		deps.Config.HistoryKey = domain.HistoryKey
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &StoryForm{
		gen:       deps.Generator,
		store:     deps.Store,
		clipboard: deps.Clipboard,
		view:      deps.View,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		cfg:       deps.Config,
		history:   domain.History{},
		status:    domain.StatusIdle,
	}
}

// Mount hydrates history on the first call only.
func (f *StoryForm) Mount(ctx context.Context) {
	f.mountOnce.Do(func() {
		f.Hydrate(ctx)
	})
}

// Hydrate reads the persisted slot. Failures are logged and never retried.
func (f *StoryForm) Hydrate(ctx context.Context) {
	raw, ok, err := f.store.Get(ctx, f.cfg.HistoryKey)
	if err != nil {
		f.logger.Error("failed to read stored stories", zap.Error(err))
		f.recordStoreError("get")
		return
	}
	if !ok {
		return
	}

	history, err := domain.DecodeHistory(raw)
	if err != nil {
		f.logger.Error("error parsing stored stories", zap.Error(err))
		f.recordStoreError("decode")
		history = domain.History{}
	}

	f.mu.Lock()
	f.history = history
	f.mu.Unlock()
}

func (f *StoryForm) UpdateField(field domain.Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields.Set(field, value)
}

func (f *StoryForm) Submit(ctx context.Context) error {
	return f.submit(ctx, nil)
}

// SubmitInput sets all three fields and submits under one lock. A busy form
// returns ErrBusy and keeps the fields of the generation in flight.
func (f *StoryForm) SubmitInput(ctx context.Context, in domain.FormInput) error {
	return f.submit(ctx, &in)
}

func (f *StoryForm) submit(ctx context.Context, in *domain.FormInput) error {
	f.mu.Lock()
	if f.status != domain.StatusIdle {
		f.mu.Unlock()
		return domain.ErrBusy
	}
	if in != nil {
		f.fields = *in
	}
	f.status = domain.StatusValidating
	input := f.fields
	f.mu.Unlock()

	// при ошибке валидации поля не трогаем, пользователь дозаполнит
	if err := input.Validate(); err != nil {
		f.setStatus(domain.StatusIdle)
		f.recordGeneration("invalid")
		f.view.Toast(ToastWarning, domain.MsgFillAllFields)
		return err
	}

	f.setStatus(domain.StatusGenerating)
	defer f.reset()

	prompt, err := f.compose(input)
	if err != nil {
		f.logger.Error("failed to compose prompt", zap.Error(err))
		f.recordGeneration("failure")
		return err
	}

	reply, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		f.logger.Error("error generating story", zap.Error(err))
		f.recordGeneration("failure")
		if f.cfg.SurfaceGenerationErrors {
			f.view.Toast(ToastError, domain.MsgGenerateFailed)
		}
		return fmt.Errorf("generate story: %w", err)
	}

	f.mu.Lock()
	next := f.history.Prepend(reply)
	f.history = next
	f.mu.Unlock()

	f.persist(ctx, next)
	f.recordGeneration("success")

	f.view.Toast(ToastSuccess, domain.MsgStoryGenerated)
	f.view.ScrollToStories()
	return nil
}

func (f *StoryForm) Copy(ctx context.Context, text string) error {
	if err := f.clipboard.Write(ctx, text); err != nil {
		f.logger.Error("failed to copy text", zap.Error(err))
		f.recordCopy("failure")
		f.view.Toast(ToastError, domain.MsgCopyFailed)
		return fmt.Errorf("copy to clipboard: %w", err)
	}

	f.mu.Lock()
	if !f.closed {
		f.copied = text
		if f.timer != nil {
			f.timer.Stop()
		}
		f.copyGen++
		gen := f.copyGen
		f.timer = time.AfterFunc(f.cfg.FeedbackDelay, func() { f.clearCopied(gen) })
	}
	f.mu.Unlock()

	f.recordCopy("success")
	f.view.Toast(ToastSuccess, domain.MsgCopied)
	return nil
}

func (f *StoryForm) Fields() domain.FormInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

func (f *StoryForm) History() domain.History {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history.Clone()
}

func (f *StoryForm) Status() domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Copied returns the text of the last copy until the feedback delay passes.
func (f *StoryForm) Copied() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copied
}

// Close stops the pending feedback timer. The form stays readable.
func (f *StoryForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *StoryForm) compose(in domain.FormInput) (string, error) {
	if f.cfg.Composer != nil {
		return f.cfg.Composer.Compose(in)
	}
	return domain.ComposePrompt(in)
}

// запись не удалась - история в памяти остаётся новой
func (f *StoryForm) persist(ctx context.Context, h domain.History) {
	raw, err := h.Encode()
	if err != nil {
		f.logger.Error("failed to encode stories", zap.Error(err))
		f.recordStoreError("encode")
		return
	}
	if err := f.store.Set(ctx, f.cfg.HistoryKey, raw); err != nil {
		f.logger.Error("failed to persist stories", zap.Error(err))
		f.recordStoreError("set")
	}
}

func (f *StoryForm) reset() {
	f.mu.Lock()
	f.fields = domain.FormInput{}
	f.status = domain.StatusIdle
	f.mu.Unlock()
}

func (f *StoryForm) setStatus(s domain.Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *StoryForm) clearCopied(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyGen != gen {
		return
	}
	f.copied = ""
	f.timer = nil
}

func (f *StoryForm) recordGeneration(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordGeneration(outcome)
	}
}

func (f *StoryForm) recordCopy(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordCopy(outcome)
	}
}

func (f *StoryForm) recordStoreError(op string) {
	if f.metrics != nil {
		f.metrics.RecordStoreError(op)
	}
}
