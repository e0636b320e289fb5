package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// Telegram is an optional second delivery channel: a plain text message per
// new item, sent by a bot to a fixed chat.
type Telegram struct {
	cfg TelegramConfig
	bot *tele.Bot
	log logx.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Telegram{cfg: cfg, bot: b, log: log}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, it catalog.Item, meta Meta) error {
	_ = ctx // telebot manages its own request deadlines

	var b strings.Builder
	if it.Title != "" {
		b.WriteString(it.Title)
	} else {
		b.WriteString("New item [" + it.ID + "]")
	}
	if it.Price != "" {
		b.WriteString("\nPrice: $" + it.Price)
	}
	if meta.Website != "" {
		b.WriteString("\nWebsite: " + meta.Website)
	}
	b.WriteString("\n" + it.URL)

	// Let the link unfurl only when there is an image worth showing.
	_, err := t.bot.Send(&tele.Chat{ID: t.cfg.ChatID}, b.String(), &tele.SendOptions{
		DisableWebPagePreview: it.Image == "",
	})
	return err
}
