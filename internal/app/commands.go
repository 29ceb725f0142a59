package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventbot/internal/transport"
	logx "eventbot/pkg/logx"
)

const (
	welcomeReply = "🎉 *Welcome to Free Tech Events!*\n\n" +
		"You're subscribed. Every day I'll send you a digest of free online " +
		"tech events — webinars, workshops, and meetups.\n\n" +
		"Commands:\n" +
		"/events — get today's digest now\n" +
		"/count — how many subscribers\n" +
		"/stop — unsubscribe\n" +
		"/help — this message"

	alreadySubscribedReply = "✅ You're already subscribed! Use /events to get today's digest now."

	stopReply = "👋 You're unsubscribed. Send /start anytime to come back."

	notSubscribedReply = "You weren't subscribed. Send /start to get daily tech events."

	helpReply = "🖥️ *Free Tech Events Bot*\n\n" +
		"/start — subscribe to the daily digest\n" +
		"/events — get today's events now\n" +
		"/count — subscriber count\n" +
		"/stop — unsubscribe\n" +
		"/help — this message"

	noEventsReply = "😕 Couldn't find events right now. Try again in a bit."

	unknownReply = "I didn't get that. Send /help to see what I can do."
)

func (a *App) commandLoop(ctx context.Context) {
	log := a.log.With(logx.String("svc", "commands"))
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-a.updates:
			if !ok {
				return
			}
			if up.Message == nil {
				continue
			}
			a.handleMessage(ctx, *up.Message, log)
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m transport.Message, log logx.Logger) {
	if strings.TrimSpace(m.Text) == "" {
		return
	}
	cmd := command(m.Text)
	log.Debug("command", logx.String("cmd", cmd), logx.Int64("chat_id", m.ChatID))

	hctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var reply string
	switch cmd {
	case "/start":
		reply = a.cmdStart(hctx, m)
	case "/stop":
		reply = a.cmdStop(hctx, m)
	case "/events":
		reply = a.cmdEvents(hctx)
	case "/count":
		reply = a.cmdCount(hctx)
	case "/help":
		reply = helpReply
	default:
		reply = unknownReply
	}
	if reply == "" {
		return
	}
	if err := a.tg.SendText(hctx, m.ChatID, reply); err != nil {
		log.Warn("reply failed", logx.String("cmd", cmd), logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
}

func (a *App) cmdStart(ctx context.Context, m transport.Message) string {
	created, err := a.store.Add(ctx, m.ChatID, displayName(m), m.FromUsername)
	if err != nil {
		a.log.Error("subscribe failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		return "Something went wrong, please try /start again."
	}
	if !created {
		return alreadySubscribedReply
	}
	a.log.Info("new subscriber", logx.Int64("chat_id", m.ChatID))
	return welcomeReply
}

func (a *App) cmdStop(ctx context.Context, m transport.Message) string {
	removed, err := a.store.Remove(ctx, m.ChatID)
	if err != nil {
		a.log.Error("unsubscribe failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		return "Something went wrong, please try /stop again."
	}
	if !removed {
		return notSubscribedReply
	}
	a.log.Info("subscriber left", logx.Int64("chat_id", m.ChatID))
	return stopReply
}

func (a *App) cmdEvents(ctx context.Context) string {
	events, body := a.coord.Digest(ctx)
	if len(events) == 0 {
		return noEventsReply
	}
	return body
}

func (a *App) cmdCount(ctx context.Context) string {
	n, err := a.store.Count(ctx)
	if err != nil {
		a.log.Error("count failed", logx.Err(err))
		return "Couldn't get the count right now."
	}
	return fmt.Sprintf("📊 *%d* subscriber(s) get the daily digest.", n)
}

// command extracts the leading slash-command, stripping the @botname suffix
// Telegram appends in groups.
func command(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return ""
	}
	if i := strings.IndexAny(t, " \t\n"); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, '@'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(t)
}

func displayName(m transport.Message) string {
	if m.FirstName != "" {
		return m.FirstName
	}
	if m.FromUsername != "" {
		return m.FromUsername
	}
	return fmt.Sprintf("user %d", m.FromID)
}
