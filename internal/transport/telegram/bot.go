package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/limitwatch/internal/logger"
	"github.com/kailas-cloud/limitwatch/internal/metrics"
	"github.com/kailas-cloud/limitwatch/internal/usecase/conversation"
)

// Defaults for Options.
const (
	DefaultPollTimeout    = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	maxPollBackoff        = time.Minute
)

// Options tunes the bot loop.
type Options struct {
	// PollTimeout is the long-poll timeout sent to getUpdates.
	PollTimeout time.Duration
	// RequestTimeout bounds every other API call and one update's handling.
	RequestTimeout time.Duration
}

// Bot polls Telegram for updates, feeds them to the conversation and delivers replies.
// It also delivers monitor notifications.
type Bot struct {
	client        *Client
	conv          Conversation
	opts          Options
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewBot creates a bot.
func NewBot(client *Client, conv Conversation, opts Options, logger *zap.Logger) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		client:        client,
		conv:          conv,
		opts:          opts,
		retryInterval: backoff.DefaultInitialInterval,
		logger:        logger,
	}
}

// RegisterCommands publishes the bot command menu.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()
	if err := b.client.SetMyCommands(ctx, Commands); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

// Ping checks the token and Bot API reachability.
func (b *Bot) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()
	_, err := b.client.GetMe(ctx)
	return err
}

// Notify sends a plain message to a user's private chat.
func (b *Bot) Notify(ctx context.Context, userID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()
	_, err := b.client.SendMessage(ctx, userID, text, nil)
	return err
}

// Run long-polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine; the conversation serializes events of the same user.
// Transient poll errors are retried with exponential backoff. Run waits for
// in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Telegram polling started", zap.Duration("poll_timeout", b.opts.PollTimeout))

	var wg sync.WaitGroup
	defer wg.Wait()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.retryInterval
	eb.MaxElapsedTime = 0 // retry indefinitely
	eb.MaxInterval = maxPollBackoff
	bkoff := backoff.WithContext(eb, ctx)

	var offset int64
	for {
		var updates []Update
		err := backoff.RetryNotify(func() error {
			var err error
			updates, err = b.client.GetUpdates(ctx, offset, b.opts.PollTimeout)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
				return backoff.Permanent(err)
			}
			return err
		}, bkoff, func(err error, next time.Duration) {
			b.logger.Warn("getUpdates failed, retrying",
				zap.Error(err),
				zap.Duration("next_retry", next),
			)
		})
		if ctx.Err() != nil {
			b.logger.Info("Telegram polling stopped")
			return nil
		}
		if err != nil {
			return fmt.Errorf("poll updates: %w", err)
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handle(ctx, u)
			}()
		}
	}
}

// handle processes one update. Replies outlive a shutdown signal up to RequestTimeout.
func (b *Bot) handle(parent context.Context, u Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.opts.RequestTimeout)
	defer cancel()

	ctx, log := logger.With(ctx, b.logger, zap.Int64("update_id", u.UpdateID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Update handler panicked", zap.Any("panic", r))
		}
	}()

	switch {
	case u.Message != nil && u.Message.From != nil && u.Message.Chat != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		m := u.Message
		ctx, _ = logger.With(ctx, log, zap.Int64("user_id", m.From.ID))
		resp := b.onText(ctx, m.From.ID, m.Text)
		b.deliver(ctx, m.Chat.ID, nil, "", resp)

	case u.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		q := u.CallbackQuery
		ctx, _ = logger.With(ctx, log, zap.Int64("user_id", q.From.ID))
		resp := b.onCallback(ctx, q.From.ID, q.Data)
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		b.deliver(ctx, chatID, q.Message, q.ID, resp)

	default:
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
	}
}

func (b *Bot) onText(ctx context.Context, userID int64, text string) conversation.Response {
	switch parseCommand(text) {
	case cmdStart:
		return b.conv.Start(ctx, userID)
	case cmdStatus:
		return b.conv.Status(ctx, userID)
	case cmdSetLimit:
		return b.conv.SetLimit(ctx, userID)
	case cmdAddLimit:
		return b.conv.AddLimit(ctx, userID)
	case cmdHelp:
		return b.conv.Help(ctx, userID)
	case cmdCancel:
		return b.conv.Cancel(ctx, userID)
	default:
		return b.conv.Text(ctx, userID, text)
	}
}

func (b *Bot) onCallback(ctx context.Context, userID int64, data string) conversation.Response {
	if id, ok := parseSelect(data); ok {
		return b.conv.SelectProject(ctx, userID, id)
	}
	if mode, value, ok := parseQuickPick(data); ok {
		return b.conv.QuickPick(ctx, userID, mode, value)
	}
	logger.FromContext(ctx).Debug("Unknown callback data", zap.String("data", data))
	return conversation.Response{}
}

// deliver renders a conversation response. src and queryID are set for inline controls.
func (b *Bot) deliver(ctx context.Context, chatID int64, src *Message, queryID string, resp conversation.Response) {
	log := logger.FromContext(ctx)

	if src != nil && resp.EditSource != "" {
		if err := b.client.EditMessageText(ctx, chatID, src.MessageID, resp.EditSource); err != nil {
			log.Warn("Failed to edit message", zap.Error(err))
		}
	}
	for _, m := range resp.Messages {
		if _, err := b.client.SendMessage(ctx, chatID, m.Text, markupFor(m)); err != nil {
			log.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	if src != nil && resp.DeleteSource {
		if err := b.client.DeleteMessage(ctx, chatID, src.MessageID); err != nil {
			log.Warn("Failed to delete message", zap.Error(err))
		}
	}
	if queryID != "" {
		if err := b.client.AnswerCallbackQuery(ctx, queryID, resp.Notice, resp.Alert); err != nil {
			log.Warn("Failed to answer callback", zap.Error(err))
		}
	}
}
