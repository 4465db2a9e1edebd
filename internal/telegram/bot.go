package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/ratelimit"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
)

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
	// SurfaceGenerationErrors - в чате молчаливая ошибка выглядит как зависание
	SurfaceGenerationErrors bool
}

// Messenger - всё, что боту нужно от Telegram API.
type Messenger interface {
	Send(chatID int64, text string) error
	SendTyping(chatID int64)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	messenger Messenger
	sessions  *Sessions
	logger    *zap.Logger
	metrics   *metrics.Metrics
	handler   *Handler
	limiter   *ratelimit.Limiter
	wg        sync.WaitGroup
}

func New(cfg BotConfig, gen service.StoryGenerator, store storage.Store, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = cfg.Debug

	bot := newBot(cfg, &apiMessenger{api: api}, gen, store, logger, m)
	bot.api = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(cfg BotConfig, messenger Messenger, gen service.StoryGenerator, store storage.Store, logger *zap.Logger, m *metrics.Metrics) *Bot {
	bot := &Bot{
		messenger: messenger,
		logger:    logger,
		metrics:   m,
	}
	// 0 - лимит выключен
	if cfg.RequestsPerMinute > 0 {
		bot.limiter = ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
	}
	bot.sessions = NewSessions(SessionDeps{
		Generator:               gen,
		Store:                   store,
		Messenger:               messenger,
		Logger:                  logger,
		Metrics:                 m,
		SurfaceGenerationErrors: cfg.SurfaceGenerationErrors,
	})
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.Shutdown()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Shutdown ждёт обработчики и гасит таймеры форм.
func (b *Bot) Shutdown() {
	b.wg.Wait()
	b.sessions.CloseAll()
	if b.limiter != nil {
		b.limiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()
	command := "text"
	if update.Message.IsCommand() {
		command = update.Message.Command()
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			b.recordRequest(command, "panic", startTime)
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)
	b.recordRequest(command, "processed", startTime)
}

func (b *Bot) recordRequest(command, status string, start time.Time) {
	if b.metrics != nil {
		b.metrics.RecordRequest("telegram", "/"+command, status, time.Since(start))
	}
}

func (b *Bot) Send(chatID int64, text string) error {
	return b.messenger.Send(chatID, text)
}

func (b *Bot) SendTyping(chatID int64) {
	b.messenger.SendTyping(chatID)
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit("telegram")
	}
}

type apiMessenger struct {
	api *tgbotapi.BotAPI
}

func (m *apiMessenger) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := m.api.Send(msg)
	return err
}

func (m *apiMessenger) SendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	m.api.Send(action)
}
