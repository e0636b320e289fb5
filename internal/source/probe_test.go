package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "dropwatch/pkg/logx"
)

func TestProbeCursorWraparound(t *testing.T) {
	t.Parallel()
	p := NewProbe(ProbeConfig{
		Name:        "t",
		URLTemplate: "https://cdn.example/i/jd_%d_a?unique=%s",
		StartID:     773220,
		EndID:       773230,
	}, logx.Nop())

	seen := map[int]int{}
	var sweep []int
	for i := 0; i < 22; i++ {
		id := p.advance()
		seen[id]++
		if i < 11 {
			sweep = append(sweep, id)
		}
	}

	// One full sweep visits exactly the 11 ids of the range, in order.
	if len(sweep) != 11 || sweep[0] != 773220 || sweep[10] != 773230 {
		t.Fatalf("first sweep = %v", sweep)
	}
	for i := 1; i < len(sweep); i++ {
		if sweep[i] != sweep[i-1]+1 {
			t.Fatalf("sweep not sequential at %d: %v", i, sweep)
		}
	}

	// After the last id the cursor wraps back to the start.
	if len(seen) != 11 {
		t.Fatalf("visited %d distinct ids, want 11", len(seen))
	}
	for id, n := range seen {
		if n != 2 {
			t.Fatalf("id %d visited %d times, want 2", id, n)
		}
	}
}

func TestProbeToken(t *testing.T) {
	t.Parallel()
	p := NewProbe(ProbeConfig{
		Name:        "t",
		URLTemplate: "https://cdn.example/i/jd_%d_a?unique=%s",
		StartID:     1,
		EndID:       2,
	}, logx.Nop())

	a := p.token()
	b := p.token()
	if len(a) != 20 || len(b) != 20 {
		t.Fatalf("token lengths = %d, %d; want 20", len(a), len(b))
	}
	if a == b {
		t.Fatalf("tokens should differ, both %q", a)
	}
	for _, r := range a {
		if !strings.ContainsRune(tokenChars, r) {
			t.Fatalf("token %q contains %q outside charset", a, r)
		}
	}
}

func TestProbeFetch(t *testing.T) {
	t.Parallel()

	// Only id 5 is "published"; 6 returns a 200 HTML placeholder page and
	// 7 a 404.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "jd_5_"):
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("\xff\xd8fake-jpeg"))
		case strings.Contains(r.URL.Path, "jd_6_"):
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>not found</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProbe(ProbeConfig{
		Name:        "t",
		URLTemplate: srv.URL + "/i/jd_%d_a?unique=%s",
		StartID:     5,
		EndID:       7,
	}, logx.Nop())
	ctx := context.Background()

	items, status, err := p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch(5) error: %v", err)
	}
	if status != http.StatusOK || len(items) != 1 {
		t.Fatalf("Fetch(5) = %d items, status %d", len(items), status)
	}
	if items[0].ID != "5" {
		t.Fatalf("item id = %q, want 5", items[0].ID)
	}
	if !strings.Contains(items[0].URL, "jd_5_a") || !strings.Contains(items[0].URL, "unique=") {
		t.Fatalf("item url = %q", items[0].URL)
	}
	// The probed url is the image; a hit without it renders an empty embed.
	if items[0].Image != items[0].URL {
		t.Fatalf("item image = %q, want the probed url %q", items[0].Image, items[0].URL)
	}

	// 200 with a non-image content type is "not present yet", not an error.
	items, status, err = p.Fetch(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("Fetch(6) = %d items, err %v; want 0, nil", len(items), err)
	}
	if status != http.StatusOK {
		t.Fatalf("Fetch(6) status = %d, want 200", status)
	}

	// Plain 404 likewise.
	items, status, err = p.Fetch(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("Fetch(7) = %d items, err %v; want 0, nil", len(items), err)
	}
	if status != http.StatusNotFound {
		t.Fatalf("Fetch(7) status = %d, want 404", status)
	}
}

func TestProbeFetchNetworkError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed on purpose

	p := NewProbe(ProbeConfig{
		Name:        "t",
		URLTemplate: srv.URL + "/i/jd_%d_a?unique=%s",
		StartID:     1,
		EndID:       1,
	}, logx.Nop())

	_, status, err := p.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if status != 0 {
		t.Fatalf("status = %d, want 0 for transport failure", status)
	}
}
