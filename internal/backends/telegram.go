package backends

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// Callback unique shared by all notification buttons; the payload carries
// the button index, the callback update itself carries the message ID.
const tgButtonUnique = "dnbtn"

// telegramBackend delivers notifications to an operator chat instead of the
// local desktop. Useful on headless machines: a message per notification,
// buttons as an inline keyboard, Dismiss deletes the message.
//
// Telegram sends no update when a user deletes a chat message, so this
// backend emits no dismissal events; the poller only exists to route button
// callbacks.
type telegramBackend struct {
	cfg     TelegramConfig
	appName string
	log     logx.Logger
	bot     *tele.Bot

	mu   sync.Mutex
	live map[int]*notify.Notification // message ID -> notification

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func newTelegram(cfg TelegramConfig, appName string, log logx.Logger) (notify.Backend, error) {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	b := &telegramBackend{
		cfg:     cfg,
		appName: appName,
		log:     log.With(logx.String("backend", "telegram")),
		bot:     bot,
		live:    map[int]*notify.Notification{},
	}
	bot.Handle(&tele.Btn{Unique: tgButtonUnique}, b.handleButton)
	return b, nil
}

func (b *telegramBackend) Deliver(_ context.Context, n *notify.Notification, replaces *notify.Notification) (string, error) {
	// Reuse the evicted entry's chat slot by deleting its message first.
	if replaces != nil {
		if err := b.deleteMessage(replaces.Identifier()); err != nil {
			b.log.Debug("could not delete replaced message", logx.Err(err))
		}
	}

	text := urgencyPrefix(n.Urgency) + b.appName + ": " + n.Title
	if n.Message != "" {
		text += "\n" + n.Message
	}

	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if len(n.Buttons) > 0 {
		markup := &tele.ReplyMarkup{}
		row := make([]tele.Btn, 0, len(n.Buttons))
		for i, btn := range n.Buttons {
			row = append(row, markup.Data(btn.Title, tgButtonUnique, strconv.Itoa(i)))
		}
		markup.Inline(markup.Row(row...))
		opts.ReplyMarkup = markup
	}

	msg, err := b.bot.Send(tele.ChatID(b.cfg.ChatID), text, opts)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.live[msg.ID] = n
	b.mu.Unlock()

	return strconv.Itoa(msg.ID), nil
}

func urgencyPrefix(u notify.Urgency) string {
	switch u {
	case notify.UrgencyCritical:
		return "\U0001F6A8 "
	case notify.UrgencyLow:
		return "ℹ️ "
	default:
		return ""
	}
}

func (b *telegramBackend) handleButton(c tele.Context) error {
	m := c.Message()
	if m == nil {
		return nil
	}
	idx, err := strconv.Atoi(c.Data())
	if err != nil {
		return c.Respond(&tele.CallbackResponse{})
	}

	b.mu.Lock()
	n := b.live[m.ID]
	b.mu.Unlock()

	if n != nil && idx >= 0 && idx < len(n.Buttons) && n.Buttons[idx].OnPressed != nil {
		n.Buttons[idx].OnPressed()
	}
	return c.Respond(&tele.CallbackResponse{})
}

func (b *telegramBackend) Dismiss(_ context.Context, n *notify.Notification) error {
	id, err := strconv.Atoi(n.Identifier())
	if err != nil {
		return fmt.Errorf("bad notification identifier %q: %w", n.Identifier(), err)
	}
	b.mu.Lock()
	delete(b.live, id)
	b.mu.Unlock()
	return b.deleteMessage(n.Identifier())
}

func (b *telegramBackend) DismissAll(context.Context) error {
	b.mu.Lock()
	ids := make([]int, 0, len(b.live))
	for id := range b.live {
		ids = append(ids, id)
	}
	b.live = map[int]*notify.Notification{}
	b.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := b.deleteMessage(strconv.Itoa(id)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *telegramBackend) deleteMessage(identifier string) error {
	if identifier == "" {
		return errors.New("empty message identifier")
	}
	return b.bot.Delete(tele.StoredMessage{MessageID: identifier, ChatID: b.cfg.ChatID})
}

func (b *telegramBackend) Capabilities(context.Context) (notify.CapabilitySet, error) {
	return notify.NewCapabilitySet(
		notify.CapAppName,
		notify.CapTitle,
		notify.CapMessage,
		notify.CapUrgency,
		notify.CapButtons,
	), nil
}

func (b *telegramBackend) HasAuthorisation(context.Context) (bool, error)     { return true, nil }
func (b *telegramBackend) RequestAuthorisation(context.Context) (bool, error) { return true, nil }

// Start runs the callback poller so button presses reach their handlers.
// Without it, deliveries still work but buttons are inert.
func (b *telegramBackend) Start(ctx context.Context, _ chan<- notify.Event) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.running {
		return nil
	}
	rctx, cancel := context.WithCancel(ctx)
	b.runCancel = cancel
	b.running = true

	b.runWG.Add(1)
	go func() {
		defer b.runWG.Done()
		go func() {
			<-rctx.Done()
			b.bot.Stop()
		}()
		b.log.Info("polling started")
		b.bot.Start() // blocks until Stop() is called
	}()
	return nil
}

func (b *telegramBackend) Stop(ctx context.Context) error {
	b.runMu.Lock()
	cancel := b.runCancel
	b.runCancel = nil
	wasRunning := b.running
	b.running = false
	b.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		b.runWG.Wait()
		close(done)
	}()

	// Keep shutdown snappy even if the long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
	case <-t.C:
		b.log.Warn("poller did not stop in time")
	}
	return nil
}
