package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/memory"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGenerator struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      int
	lastPrompt string
	// block держит Generate до закрытия
	block chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.lastPrompt = prompt
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	return g.reply, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeClipboard struct {
	err   error
	texts []string
}

func (c *fakeClipboard) Write(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.texts = append(c.texts, text)
	return nil
}

type toast struct {
	kind ToastKind
	msg  string
}

type recordingView struct {
	mu      sync.Mutex
	toasts  []toast
	scrolls int
}

func (v *recordingView) Toast(kind ToastKind, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toasts = append(v.toasts, toast{kind, msg})
}

func (v *recordingView) ScrollToStories() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

type formFixture struct {
	form  *StoryForm
	gen   *fakeGenerator
	store *memory.Store
	clip  *fakeClipboard
	view  *recordingView
}

func newFormFixture(t *testing.T, cfg StoryFormConfig) *formFixture {
	t.Helper()
	fx := &formFixture{
		gen:   &fakeGenerator{reply: "Once upon a tide..."},
		store: memory.New(),
		clip:  &fakeClipboard{},
		view:  &recordingView{},
	}
	fx.form = NewStoryForm(StoryFormDeps{
		Generator: fx.gen,
		Store:     fx.store,
		Clipboard: fx.clip,
		View:      fx.view,
		Logger:    zap.NewNop(),
		Config:    cfg,
	})
	t.Cleanup(fx.form.Close)
	return fx
}

func (fx *formFixture) fill(t *testing.T, in domain.FormInput) {
	t.Helper()
	require.NoError(t, fx.form.UpdateField(domain.FieldName, in.Name))
	require.NoError(t, fx.form.UpdateField(domain.FieldSetting, in.Setting))
	require.NoError(t, fx.form.UpdateField(domain.FieldCreature, in.Creature))
}

var amara = domain.FormInput{Name: "Amara", Setting: "underwater", Creature: "sea dragon"}

func TestStoryForm_SubmitSuccess(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})
	ctx := context.Background()
	require.NoError(t, fx.store.Set(ctx, domain.HistoryKey, `["older"]`))
	fx.form.Mount(ctx)

	fx.fill(t, amara)
	require.NoError(t, fx.form.Submit(ctx))

	assert.Equal(t, domain.History{"Once upon a tide...", "older"}, fx.form.History())
	assert.Equal(t, domain.FormInput{}, fx.form.Fields())
	assert.Equal(t, domain.StatusIdle, fx.form.Status())

	raw, ok, err := fx.store.Get(ctx, domain.HistoryKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["Once upon a tide...","older"]`, raw)

	want, _ := domain.ComposePrompt(amara)
	assert.Equal(t, want, fx.gen.lastPrompt)
	assert.Contains(t, fx.gen.lastPrompt, "Amara")

	assert.Equal(t, []toast{{ToastSuccess, domain.MsgStoryGenerated}}, fx.view.toasts)
	assert.Equal(t, 1, fx.view.scrolls)
}

func TestStoryForm_HistoryCap(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   domain.History
	}{
		{"empty", "", domain.History{"new"}},
		{"one", `["a"]`, domain.History{"new", "a"}},
		{"two drops oldest", `["a","b"]`, domain.History{"new", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFormFixture(t, StoryFormConfig{})
			ctx := context.Background()
			if tt.stored != "" {
				require.NoError(t, fx.store.Set(ctx, domain.HistoryKey, tt.stored))
			}
			fx.form.Mount(ctx)
			fx.gen.reply = "new"

			fx.fill(t, amara)
			require.NoError(t, fx.form.Submit(ctx))
			assert.Equal(t, tt.want, fx.form.History())
			assert.LessOrEqual(t, len(fx.form.History()), domain.MaxHistory)
		})
	}
}

func TestStoryForm_ValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		input domain.FormInput
	}{
		{"creature empty", domain.FormInput{Name: "Amara", Setting: "underwater"}},
		{"name empty", domain.FormInput{Setting: "underwater", Creature: "sea dragon"}},
		{"setting empty", domain.FormInput{Name: "Amara", Creature: "sea dragon"}},
		{"all empty", domain.FormInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFormFixture(t, StoryFormConfig{})
			ctx := context.Background()
			fx.fill(t, tt.input)

			err := fx.form.Submit(ctx)
			assert.ErrorIs(t, err, domain.ErrEmptyField)
			assert.Equal(t, 0, fx.gen.Calls())
			assert.Empty(t, fx.form.History())
			assert.Equal(t, domain.StatusIdle, fx.form.Status())
			// поля остаются для дозаполнения
			assert.Equal(t, tt.input, fx.form.Fields())
			assert.Equal(t, []toast{{ToastWarning, domain.MsgFillAllFields}}, fx.view.toasts)

			_, ok, _ := fx.store.Get(ctx, domain.HistoryKey)
			assert.False(t, ok)
		})
	}
}

func TestStoryForm_WhitespaceIsNotEmpty(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})
	fx.fill(t, domain.FormInput{Name: " ", Setting: " ", Creature: " "})

	require.NoError(t, fx.form.Submit(context.Background()))
	assert.Equal(t, 1, fx.gen.Calls())
}

func TestStoryForm_GenerationFailure(t *testing.T) {
	tests := []struct {
		name       string
		surface    bool
		wantToasts []toast
	}{
		{"logged only by default", false, nil},
		{"surfaced when enabled", true, []toast{{ToastError, domain.MsgGenerateFailed}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFormFixture(t, StoryFormConfig{SurfaceGenerationErrors: tt.surface})
			ctx := context.Background()
			require.NoError(t, fx.store.Set(ctx, domain.HistoryKey, `["kept"]`))
			fx.form.Mount(ctx)

			fx.gen.err = domain.ErrGenerationFailed
			fx.fill(t, amara)

			err := fx.form.Submit(ctx)
			assert.ErrorIs(t, err, domain.ErrGenerationFailed)
			assert.Equal(t, domain.History{"kept"}, fx.form.History())
			assert.Equal(t, domain.FormInput{}, fx.form.Fields(), "fields reset after failed generation")
			assert.Equal(t, domain.StatusIdle, fx.form.Status())
			assert.Equal(t, tt.wantToasts, fx.view.toasts)
			assert.Zero(t, fx.view.scrolls)
		})
	}
}

func TestStoryForm_BusyWhileGenerating(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})
	fx.gen.block = make(chan struct{})
	fx.fill(t, amara)

	done := make(chan error, 1)
	go func() { done <- fx.form.Submit(context.Background()) }()

	require.Eventually(t, func() bool {
		return fx.form.Status() == domain.StatusGenerating
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, fx.form.Submit(context.Background()), domain.ErrBusy)

	close(fx.gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fx.gen.Calls())
	assert.Equal(t, domain.StatusIdle, fx.form.Status())
}

func TestStoryForm_SubmitInputBusyKeepsFields(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})
	fx.gen.block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- fx.form.SubmitInput(context.Background(), amara) }()

	require.Eventually(t, func() bool {
		return fx.form.Status() == domain.StatusGenerating
	}, time.Second, time.Millisecond)

	other := domain.FormInput{Name: "Bran", Setting: "desert", Creature: "sphinx"}
	assert.ErrorIs(t, fx.form.SubmitInput(context.Background(), other), domain.ErrBusy)
	assert.Equal(t, amara, fx.form.Fields())

	close(fx.gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fx.gen.Calls())
	assert.Contains(t, fx.gen.lastPrompt, "Amara")
	assert.NotContains(t, fx.gen.lastPrompt, "Bran")
	assert.Equal(t, domain.FormInput{}, fx.form.Fields())
}

func TestStoryForm_SubmitInputValidates(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})

	err := fx.form.SubmitInput(context.Background(), domain.FormInput{Name: "Amara", Setting: "underwater"})

	assert.ErrorIs(t, err, domain.ErrEmptyField)
	assert.Zero(t, fx.gen.Calls())
	assert.Equal(t, "Amara", fx.form.Fields().Name)
	assert.Equal(t, domain.StatusIdle, fx.form.Status())
}

func TestStoryForm_PersistFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore(t)
	store.On("Get", mock.Anything, domain.HistoryKey).Return("", false, nil).Once()
	store.On("Set", mock.Anything, domain.HistoryKey, `["fresh"]`).Return(errors.New("disk full")).Once()

	m := metrics.New()
	view := &recordingView{}
	form := NewStoryForm(StoryFormDeps{
		Generator: &fakeGenerator{reply: "fresh"},
		Store:     store,
		Clipboard: &fakeClipboard{},
		View:      view,
		Logger:    zap.NewNop(),
		Metrics:   m,
	})
	defer form.Close()

	form.Mount(ctx)
	require.NoError(t, form.UpdateField(domain.FieldName, "a"))
	require.NoError(t, form.UpdateField(domain.FieldSetting, "b"))
	require.NoError(t, form.UpdateField(domain.FieldCreature, "c"))

	require.NoError(t, form.Submit(ctx))
	assert.Equal(t, domain.History{"fresh"}, form.History())
	assert.Equal(t, []toast{{ToastSuccess, domain.MsgStoryGenerated}}, view.toasts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("success")))
}

func TestStoryForm_Hydrate(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		absent bool
		want   domain.History
	}{
		{"absent", "", true, domain.History{}},
		{"two stories", `["b","a"]`, false, domain.History{"b", "a"}},
		{"truncated to two", `["c","b","a"]`, false, domain.History{"c", "b"}},
		{"malformed", `{not json`, false, domain.History{}},
		{"wrong shape", `{"stories":[]}`, false, domain.History{}},
		{"null", `null`, false, domain.History{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFormFixture(t, StoryFormConfig{})
			ctx := context.Background()
			if !tt.absent {
				require.NoError(t, fx.store.Set(ctx, domain.HistoryKey, tt.stored))
			}

			fx.form.Hydrate(ctx)
			assert.Equal(t, tt.want, fx.form.History())

			// повторная гидрация даёт то же самое
			fx.form.Hydrate(ctx)
			assert.Equal(t, tt.want, fx.form.History())
		})
	}
}

func TestStoryForm_HydrateStoreError(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("Get", mock.Anything, domain.HistoryKey).Return("", false, errors.New("connection refused")).Once()

	form := NewStoryForm(StoryFormDeps{Store: store, Logger: zap.NewNop()})
	defer form.Close()

	form.Mount(context.Background())
	form.Mount(context.Background()) // второй раз стор не трогаем
	assert.Empty(t, form.History())
}

func TestStoryForm_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := NewStoryForm(StoryFormDeps{
		Generator: &fakeGenerator{reply: "tale one"},
		Store:     store,
		Clipboard: &fakeClipboard{},
		View:      &recordingView{},
	})
	defer first.Close()
	first.Mount(ctx)
	for i := 0; i < 2; i++ {
		require.NoError(t, first.UpdateField(domain.FieldName, "n"))
		require.NoError(t, first.UpdateField(domain.FieldSetting, "s"))
		require.NoError(t, first.UpdateField(domain.FieldCreature, "c"))
		require.NoError(t, first.Submit(ctx))
	}

	second := NewStoryForm(StoryFormDeps{Store: store})
	defer second.Close()
	second.Mount(ctx)

	assert.Equal(t, first.History(), second.History())
}

func TestStoryForm_CustomHistoryKey(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{HistoryKey: "chat:1:" + domain.HistoryKey})
	fx.fill(t, amara)
	require.NoError(t, fx.form.Submit(context.Background()))

	_, ok, _ := fx.store.Get(context.Background(), "chat:1:generatedStories")
	assert.True(t, ok)
}

func TestStoryForm_CustomComposer(t *testing.T) {
	composer, err := domain.NewPromptComposer("{{.Creature}} meets {{.Name}} in {{.Setting}}")
	require.NoError(t, err)

	fx := newFormFixture(t, StoryFormConfig{Composer: composer})
	fx.fill(t, amara)
	require.NoError(t, fx.form.Submit(context.Background()))
	assert.Equal(t, "sea dragon meets Amara in underwater", fx.gen.lastPrompt)
}

func TestStoryForm_UpdateFieldUnknown(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{})
	assert.ErrorIs(t, fx.form.UpdateField(domain.Field("villain"), "x"), domain.ErrUnknownField)
}

func TestStoryForm_CopyFeedbackClears(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{FeedbackDelay: 30 * time.Millisecond})

	require.NoError(t, fx.form.Copy(context.Background(), "story text"))
	assert.Equal(t, "story text", fx.form.Copied())
	assert.Equal(t, []string{"story text"}, fx.clip.texts)
	assert.Equal(t, []toast{{ToastSuccess, domain.MsgCopied}}, fx.view.toasts)

	assert.Eventually(t, func() bool {
		return fx.form.Copied() == ""
	}, time.Second, 5*time.Millisecond)
}

func TestStoryForm_CopyRestartsTimer(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{FeedbackDelay: 80 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, fx.form.Copy(ctx, "first"))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, fx.form.Copy(ctx, "second"))

	// первый таймер уже бы сработал, но он отменён
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "second", fx.form.Copied())

	assert.Eventually(t, func() bool {
		return fx.form.Copied() == ""
	}, time.Second, 5*time.Millisecond)
}

func TestStoryForm_CopyFailure(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{FeedbackDelay: time.Hour})
	ctx := context.Background()

	require.NoError(t, fx.form.Copy(ctx, "kept"))
	fx.clip.err = errors.New("no clipboard utility")

	err := fx.form.Copy(ctx, "lost")
	assert.Error(t, err)
	assert.Equal(t, "kept", fx.form.Copied())
	assert.Equal(t, toast{ToastError, domain.MsgCopyFailed}, fx.view.toasts[len(fx.view.toasts)-1])
}

func TestStoryForm_CloseStopsTimer(t *testing.T) {
	fx := newFormFixture(t, StoryFormConfig{FeedbackDelay: 20 * time.Millisecond})

	require.NoError(t, fx.form.Copy(context.Background(), "x"))
	fx.form.Close()
	time.Sleep(40 * time.Millisecond)

	// таймер остановлен, отметка остаётся как была
	assert.Equal(t, "x", fx.form.Copied())
}
