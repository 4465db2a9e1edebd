package telegram

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
)

const (
	msgWelcome = "Welcome! I write personalized fantasy tales.\n\nSend /story name | setting | creature, for example:\n/story Amara | underwater | sea dragon\n\nUse /help to see all commands."

	helpText = `<b>Commands:</b>

/story name | setting | creature - Generate a tale
/stories - Show your last stories
/copy N - Send story N as a copyable block
/help - Show this help

Only the last two stories are kept.`

	msgUnknownCommand = "Unknown command. Use /help to see the commands."
	msgPlainText      = "Use /story name | setting | creature to get a tale."
	msgBusy           = "Still writing your previous story, please wait."
	msgRateLimited    = "Too many requests. Please wait a minute."
	msgCopyUsage      = "Specify the story number: /copy 1"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", userID(msg)),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if !msg.IsCommand() {
		h.bot.Send(msg.Chat.ID, msgPlainText)
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.bot.Send(msg.Chat.ID, helpText)
	case "story":
		h.handleStory(ctx, msg)
	case "stories":
		h.handleStories(ctx, msg)
	case "copy":
		h.handleCopy(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, msgUnknownCommand)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	// заодно поднимаем сохранённую историю
	h.bot.sessions.Get(ctx, msg.Chat.ID)
	h.bot.Send(msg.Chat.ID, msgWelcome)
}

func (h *Handler) handleStory(ctx context.Context, msg *tgbotapi.Message) {
	key := strconv.FormatInt(userID(msg), 10)
	if h.bot.limiter != nil && !h.bot.limiter.Allow(key) {
		h.bot.logger.Warn("rate limit exceeded",
			zap.String("user_id", key),
			zap.Time("reset_at", h.bot.limiter.ResetTime(key)),
		)
		h.bot.RecordRateLimitHit()
		h.bot.Send(msg.Chat.ID, msgRateLimited)
		return
	}

	form := h.bot.sessions.Get(ctx, msg.Chat.ID)
	input := ParseStoryArgs(msg.CommandArguments())

	h.bot.SendTyping(msg.Chat.ID)

	// тосты и сама история уходят через chatView
	err := form.SubmitInput(ctx, input)
	switch {
	case err == nil, errors.Is(err, domain.ErrEmptyField):
	case errors.Is(err, domain.ErrBusy):
		h.bot.Send(msg.Chat.ID, msgBusy)
	default:
		h.bot.logger.Warn("story generation failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}

func (h *Handler) handleStories(ctx context.Context, msg *tgbotapi.Message) {
	form := h.bot.sessions.Get(ctx, msg.Chat.ID)

	text := FormatStories(form.History(), form.Copied())
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := h.bot.Send(msg.Chat.ID, part); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) handleCopy(ctx context.Context, msg *tgbotapi.Message) {
	form := h.bot.sessions.Get(ctx, msg.Chat.ID)
	history := form.History()

	n, ok := ParseStoryNumber(msg.CommandArguments(), len(history))
	if !ok {
		h.bot.Send(msg.Chat.ID, msgCopyUsage)
		return
	}

	// ошибку уже показал тост
	_ = form.Copy(ctx, history[n-1])
}

func userID(msg *tgbotapi.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}
