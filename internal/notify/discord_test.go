package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

func variants(labels ...string) []catalog.Variant {
	vs := make([]catalog.Variant, 0, len(labels))
	for _, l := range labels {
		vs = append(vs, catalog.Variant{Label: l, Link: "https://shop.example/cart/" + l + ":1"})
	}
	return vs
}

func TestSplitColumnsSeven(t *testing.T) {
	t.Parallel()
	it := catalog.Item{
		URL:      "https://shop.example/products/x",
		Variants: variants("8", "8.5", "9", "9.5", "10", "10.5", "11"),
	}

	cols := splitColumns(it)
	if len(cols[0]) != 3 || len(cols[1]) != 2 || len(cols[2]) != 2 {
		t.Fatalf("column sizes = %d/%d/%d, want 3/2/2", len(cols[0]), len(cols[1]), len(cols[2]))
	}

	// Order is preserved across columns.
	var flat []string
	for _, col := range cols {
		flat = append(flat, col...)
	}
	want := []string{"8", "8.5", "9", "9.5", "10", "10.5", "11"}
	for i, entry := range flat {
		if !strings.HasPrefix(entry, "["+want[i]+" US](") {
			t.Fatalf("flat[%d] = %q, want label %q", i, entry, want[i])
		}
	}
}

func TestSplitColumnsSizes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    int
		want [3]int
	}{
		{n: 0, want: [3]int{0, 0, 0}},
		{n: 1, want: [3]int{1, 0, 0}},
		{n: 2, want: [3]int{1, 1, 0}},
		{n: 3, want: [3]int{1, 1, 1}},
		{n: 4, want: [3]int{2, 1, 1}},
		{n: 6, want: [3]int{2, 2, 2}},
		{n: 7, want: [3]int{3, 2, 2}},
		{n: 10, want: [3]int{4, 3, 3}},
	}
	for _, tt := range tests {
		labels := make([]string, tt.n)
		for i := range labels {
			labels[i] = "v"
		}
		cols := splitColumns(catalog.Item{Variants: variants(labels...)})
		got := [3]int{len(cols[0]), len(cols[1]), len(cols[2])}
		if got != tt.want {
			t.Fatalf("n=%d: sizes = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestSplitColumnsLinkFallback(t *testing.T) {
	t.Parallel()
	it := catalog.Item{
		URL:      "https://shop.example/products/x",
		Variants: []catalog.Variant{{Label: "9"}},
	}
	cols := splitColumns(it)
	if cols[0][0] != "[9 US](https://shop.example/products/x)" {
		t.Fatalf("entry = %q, want fallback to item url", cols[0][0])
	}
}

func TestDiscordPlaceholderIsNoop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	for _, url := range []string{
		"",
		"https://discord.com/api/webhooks/YOUR_WEBHOOK_ID/YOUR_WEBHOOK_TOKEN",
	} {
		d := NewDiscord(DiscordConfig{WebhookURL: url}, logx.Nop())
		if err := d.Send(context.Background(), catalog.Item{ID: "1", URL: "u"}, Meta{}); err != nil {
			t.Fatalf("placeholder Send must be a silent no-op, got %v", err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("placeholder config made %d outbound calls, want 0", calls.Load())
	}
}

func TestDiscordSendPayload(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{
		WebhookURL: srv.URL,
		Username:   "Drop Monitor",
		FooterText: "Drop Monitor",
	}, logx.Nop())

	it := catalog.Item{
		ID:       "42",
		URL:      "https://shop.example/products/x",
		Title:    "Runner",
		Price:    "120.00",
		Image:    "https://cdn.example/1.jpg",
		Variants: variants("10.5", "11"),
	}
	if err := d.Send(context.Background(), it, Meta{Website: "Shoe Palace"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if got.Username != "Drop Monitor" {
		t.Fatalf("username = %q", got.Username)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Runner" || e.URL != it.URL || e.Color != newItemColor {
		t.Fatalf("embed = %+v", e)
	}
	if e.Author == nil || e.Author.Name != "New product" {
		t.Fatalf("author = %+v, want New product", e.Author)
	}
	if e.Thumbnail == nil || e.Thumbnail.URL != it.Image {
		t.Fatal("expected thumbnail image")
	}
	if e.Image != nil {
		t.Fatal("full image must not be set without the FullImage hint")
	}

	wantFields := map[string]string{
		"Price":   "$120.00",
		"Website": "Shoe Palace",
		"ID":      "42",
	}
	found := map[string]string{}
	sizeCols := 0
	for _, f := range e.Fields {
		if f.Name == "Sizes" {
			sizeCols++
			continue
		}
		found[f.Name] = f.Value
	}
	for k, v := range wantFields {
		if found[k] != v {
			t.Fatalf("field %s = %q, want %q", k, found[k], v)
		}
	}
	if sizeCols != 2 {
		t.Fatalf("size columns = %d, want 2 for 2 variants", sizeCols)
	}
}

func TestDiscordFullImage(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: srv.URL}, logx.Nop())
	it := catalog.Item{ID: "773221", URL: "https://cdn.example/i/773221", Image: "https://cdn.example/i/773221"}
	if err := d.Send(context.Background(), it, Meta{Probe: true, FullImage: true, Website: "JD Sports"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	e := got.Embeds[0]
	if e.Title != "Image Loaded via JD Sports [773221]" {
		t.Fatalf("derived title = %q", e.Title)
	}
	if e.Author == nil || e.Author.Name != "New image" {
		t.Fatalf("author = %+v, want New image", e.Author)
	}
	if e.Image == nil || e.Image.URL != it.Image {
		t.Fatal("expected full-size image")
	}
	if e.Thumbnail != nil {
		t.Fatal("thumbnail must not be set with the FullImage hint")
	}
}

func TestDiscordProbeTitleWithoutWebsite(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: srv.URL}, logx.Nop())
	it := catalog.Item{ID: "7", URL: "https://cdn.example/i/7", Image: "https://cdn.example/i/7"}
	if err := d.Send(context.Background(), it, Meta{Probe: true}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if got.Embeds[0].Title != "New image [7]" {
		t.Fatalf("derived title = %q", got.Embeds[0].Title)
	}
}

func TestDiscordSendErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: srv.URL}, logx.Nop())
	if err := d.Send(context.Background(), catalog.Item{ID: "1", URL: "u"}, Meta{}); err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
}
