package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "dropwatch/pkg/logx"
)

func TestShopifyNormalizeDefaults(t *testing.T) {
	t.Parallel()
	s := NewShopify(ShopifyConfig{Name: "t", BaseURL: "https://shop.example"}, logx.Nop())

	it := s.normalize(shopifyProduct{ID: 5, Handle: "bare"})
	if it.ID != "5" {
		t.Fatalf("ID = %q, want 5", it.ID)
	}
	if it.URL != "https://shop.example/products/bare" {
		t.Fatalf("URL = %q", it.URL)
	}
	if it.Title != "" || it.Image != "" {
		t.Fatalf("optional fields must default to empty, got title=%q image=%q", it.Title, it.Image)
	}
	if it.Price != "0.00" {
		t.Fatalf("Price = %q, want 0.00", it.Price)
	}
	if len(it.Variants) != 0 {
		t.Fatalf("Variants = %v, want empty", it.Variants)
	}
}

func TestShopifyNormalizeVariants(t *testing.T) {
	t.Parallel()
	s := NewShopify(ShopifyConfig{Name: "t", BaseURL: "https://shop.example/"}, logx.Nop())

	p := shopifyProduct{
		ID:     10,
		Title:  "Runner",
		Handle: "runner",
		Images: []shopifyImage{{Src: "https://cdn.example/1.jpg"}, {Src: "https://cdn.example/2.jpg"}},
		Variants: []shopifyVariant{
			{ID: 111, Title: "10.5", Price: "129.99"},
			{ID: 0, Title: "11"},   // no id: skipped
			{ID: 222, Title: ""},   // no label: skipped
			{ID: 333, Title: "12"}, // no per-variant price needed
		},
	}

	it := s.normalize(p)
	if it.Image != "https://cdn.example/1.jpg" {
		t.Fatalf("Image = %q, want first image", it.Image)
	}
	if it.Price != "129.99" {
		t.Fatalf("Price = %q, want first variant price", it.Price)
	}
	if len(it.Variants) != 2 {
		t.Fatalf("kept %d variants, want 2", len(it.Variants))
	}
	if it.Variants[0].Label != "10.5" || it.Variants[0].Link != "https://shop.example/cart/111:1" {
		t.Fatalf("variant[0] = %+v", it.Variants[0])
	}
	if it.Variants[1].Label != "12" || it.Variants[1].Link != "https://shop.example/cart/333:1" {
		t.Fatalf("variant[1] = %+v", it.Variants[1])
	}

	idx := it.LinkIndex()
	if idx["10_5"] != "https://shop.example/cart/111:1" {
		t.Fatalf("safe-label link = %q", idx["10_5"])
	}
}

func TestShopifyFetch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[
			{"id":1,"title":"A","handle":"a","variants":[{"id":11,"title":"9","price":"80.00"}]},
			{"id":2,"title":"B","handle":"b"}
		]}`))
	}))
	defer srv.Close()

	s := NewShopify(ShopifyConfig{Name: "t", BaseURL: srv.URL}, logx.Nop())
	items, status, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "2" {
		t.Fatalf("ids = %s, %s", items[0].ID, items[1].ID)
	}
}

func TestShopifyFetchEmptyList(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[]}`))
	}))
	defer srv.Close()

	s := NewShopify(ShopifyConfig{Name: "t", BaseURL: srv.URL}, logx.Nop())
	items, status, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("empty list must not be an error, got %v", err)
	}
	if status != http.StatusOK || len(items) != 0 {
		t.Fatalf("got %d items, status %d", len(items), status)
	}
}

func TestShopifyFetchErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewShopify(ShopifyConfig{Name: "t", BaseURL: srv.URL}, logx.Nop())
	_, status, err := s.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", status)
	}
}
