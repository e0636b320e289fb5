package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

const newItemColor = 0x00ff00

// Discord posts one embed per new item to a webhook.
//
// An unset or placeholder webhook URL disables the sink: Send becomes a
// logged no-op. That is a configuration guard, not an error.
type Discord struct {
	cfg      DiscordConfig
	http     *http.Client
	log      logx.Logger
	warnOnce sync.Once
}

type DiscordConfig struct {
	WebhookURL string
	Username   string
	AvatarURL  string
	FooterText string
	FooterIcon string
	Timeout    time.Duration
}

func NewDiscord(cfg DiscordConfig, log logx.Logger) *Discord {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Discord{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) configured() bool {
	url := strings.TrimSpace(d.cfg.WebhookURL)
	return url != "" && !strings.Contains(url, "YOUR_WEBHOOK")
}

// Webhook payload shapes (the subset we emit).

type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title"`
	URL       string       `json:"url,omitempty"`
	Color     int          `json:"color"`
	Author    *embedAuthor `json:"author,omitempty"`
	Fields    []embedField `json:"fields,omitempty"`
	Thumbnail *embedImage  `json:"thumbnail,omitempty"`
	Image     *embedImage  `json:"image,omitempty"`
	Footer    *embedFooter `json:"footer,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

func (d *Discord) Send(ctx context.Context, it catalog.Item, meta Meta) error {
	if !d.configured() {
		d.warnOnce.Do(func() {
			d.log.Warn("discord webhook not configured; skipping notifications")
		})
		return nil
	}

	payload := webhookPayload{
		Username:  d.cfg.Username,
		AvatarURL: d.cfg.AvatarURL,
		Embeds:    []embed{d.buildEmbed(it, meta)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (d *Discord) buildEmbed(it catalog.Item, meta Meta) embed {
	author := "New product"
	if meta.Probe {
		author = "New image"
	}

	title := it.Title
	if title == "" {
		switch {
		case meta.Probe && meta.Website != "":
			title = fmt.Sprintf("Image Loaded via %s [%s]", meta.Website, it.ID)
		case meta.Probe:
			title = fmt.Sprintf("New image [%s]", it.ID)
		default:
			title = fmt.Sprintf("New item [%s]", it.ID)
		}
	}

	e := embed{
		Title:     title,
		URL:       it.URL,
		Color:     newItemColor,
		Author:    &embedAuthor{Name: author, IconURL: d.cfg.AvatarURL},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if d.cfg.FooterText != "" {
		e.Footer = &embedFooter{Text: d.cfg.FooterText, IconURL: d.cfg.FooterIcon}
	}

	if it.Price != "" {
		e.Fields = append(e.Fields, embedField{Name: "Price", Value: "$" + it.Price, Inline: true})
	}
	if meta.Website != "" {
		e.Fields = append(e.Fields, embedField{Name: "Website", Value: meta.Website, Inline: true})
	}
	e.Fields = append(e.Fields, embedField{Name: "ID", Value: it.ID, Inline: true})

	for _, col := range splitColumns(it) {
		if len(col) == 0 {
			continue
		}
		e.Fields = append(e.Fields, embedField{
			Name:   "Sizes",
			Value:  strings.Join(col, "\n"),
			Inline: true,
		})
	}

	if it.Image != "" {
		if meta.FullImage {
			e.Image = &embedImage{URL: it.Image}
		} else {
			e.Thumbnail = &embedImage{URL: it.Image}
		}
	}
	return e
}

// splitColumns distributes variant links across up to three side-by-side
// columns: sizes (n+2)/3, (n+1)/3, remainder, preserving input order.
// Entries render as "[label US](link)"; a variant without a link falls back
// to the item URL.
func splitColumns(it catalog.Item) [3][]string {
	var cols [3][]string
	n := len(it.Variants)
	if n == 0 {
		return cols
	}

	entry := func(v catalog.Variant) string {
		link := v.Link
		if link == "" {
			link = it.URL
		}
		return fmt.Sprintf("[%s US](%s)", v.Label, link)
	}

	g1 := (n + 2) / 3
	g2 := (n + 1) / 3
	for i, v := range it.Variants {
		switch {
		case i < g1:
			cols[0] = append(cols[0], entry(v))
		case i < g1+g2:
			cols[1] = append(cols[1], entry(v))
		default:
			cols[2] = append(cols[2], entry(v))
		}
	}
	return cols
}
