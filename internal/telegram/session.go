package telegram

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
)

type SessionDeps struct {
	Generator               service.StoryGenerator
	Store                   storage.Store
	Messenger               Messenger
	Logger                  *zap.Logger
	Metrics                 *metrics.Metrics
	SurfaceGenerationErrors bool
}

// Sessions держит по одной форме на чат.
type Sessions struct {
	deps SessionDeps

	mu    sync.Mutex
	forms map[int64]*service.StoryForm
}

func NewSessions(deps SessionDeps) *Sessions {
	return &Sessions{
		deps:  deps,
		forms: make(map[int64]*service.StoryForm),
	}
}

// ChatPrefix scopes the history slot of one chat.
func ChatPrefix(chatID int64) string {
	return fmt.Sprintf("chat:%d:", chatID)
}

// Get returns the chat's form, creating and hydrating it on first use.
func (s *Sessions) Get(ctx context.Context, chatID int64) *service.StoryForm {
	s.mu.Lock()
	form, ok := s.forms[chatID]
	if !ok {
		form = s.newForm(chatID)
		s.forms[chatID] = form
	}
	s.mu.Unlock()

	form.Mount(ctx)
	return form
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, form := range s.forms {
		form.Close()
		delete(s.forms, id)
	}
}

func (s *Sessions) newForm(chatID int64) *service.StoryForm {
	view := &chatView{chatID: chatID, messenger: s.deps.Messenger, logger: s.deps.Logger}
	form := service.NewStoryForm(service.StoryFormDeps{
		Generator: s.deps.Generator,
		Store:     storage.WithPrefix(s.deps.Store, ChatPrefix(chatID)),
		Clipboard: &chatClipboard{chatID: chatID, messenger: s.deps.Messenger},
		View:      view,
		Logger:    s.deps.Logger.With(zap.Int64("chat_id", chatID)),
		Metrics:   s.deps.Metrics,
		Config: service.StoryFormConfig{
			SurfaceGenerationErrors: s.deps.SurfaceGenerationErrors,
		},
	})
	view.form = form
	return form
}

// chatView рендерит тосты сообщениями, "прокрутка" = показать свежую историю.
type chatView struct {
	chatID    int64
	messenger Messenger
	logger    *zap.Logger
	form      *service.StoryForm
}

func (v *chatView) Toast(kind service.ToastKind, message string) {
	if err := v.messenger.Send(v.chatID, FormatToast(kind, message)); err != nil {
		v.logger.Error("failed to send toast", zap.Error(err))
	}
}

func (v *chatView) ScrollToStories() {
	history := v.form.History()
	if len(history) == 0 {
		return
	}
	for _, part := range SplitMessage(FormatStory(1, history[0], false), maxMessageLen) {
		if err := v.messenger.Send(v.chatID, part); err != nil {
			v.logger.Error("failed to send story", zap.Error(err))
		}
	}
}

// chatClipboard - у бота нет буфера обмена, отдаём историю моноширинным блоком,
// телеграм копирует его по тапу.
type chatClipboard struct {
	chatID    int64
	messenger Messenger
}

func (c *chatClipboard) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// пустое сообщение телеграм не примет, копировать нечего
	if text == "" {
		return nil
	}
	for _, part := range FormatCopyBlocks(text) {
		if err := c.messenger.Send(c.chatID, part); err != nil {
			return fmt.Errorf("send copy block: %w", err)
		}
	}
	return nil
}
