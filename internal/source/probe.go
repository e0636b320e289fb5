package source

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// Probe walks a bounded numeric id range one id per cycle, wrapping back to
// the start after the last id. A probe "hit" is a 200 response with an
// image content type; everything else means the id is not published yet.
//
// Each request carries a fresh cache-busting token so CDN intermediaries
// cannot keep answering with a stale not-found for an id that has since
// appeared.
type Probe struct {
	name    string
	tpl     string
	startID int
	endID   int

	cursor  int
	http    *http.Client
	limiter *rate.Limiter
	rng     *rand.Rand
	log     logx.Logger
}

type ProbeConfig struct {
	Name string

	// URLTemplate is printf-style with two verbs: the numeric id, then the
	// cache-busting token. Example:
	//   "https://cdn.example.com/i/jd_%d_a?w=500&unique=%s"
	URLTemplate string

	StartID int
	EndID   int // inclusive

	Timeout time.Duration

	// RatePerSec caps probe requests. 0 disables the cap.
	RatePerSec int
}

func NewProbe(cfg ProbeConfig, log logx.Logger) *Probe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Probe{
		name:    cfg.Name,
		tpl:     cfg.URLTemplate,
		startID: cfg.StartID,
		endID:   cfg.EndID,
		cursor:  cfg.StartID,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

func (p *Probe) Name() string { return p.name }

// advance returns the id to probe this cycle and moves the cursor, wrapping
// to the range start after the last id. The cursor is owned by the single
// poll loop; no locking.
func (p *Probe) advance() int {
	id := p.cursor
	p.cursor++
	if p.cursor > p.endID {
		p.cursor = p.startID
		p.log.Info("completed id range, starting over",
			logx.Int("start_id", p.startID), logx.Int("end_id", p.endID))
	}
	return id
}

const tokenChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// token generates the 20-char random cache-busting value.
func (p *Probe) token() string {
	b := make([]byte, 20)
	for i := range b {
		b[i] = tokenChars[p.rng.Intn(len(tokenChars))]
	}
	return string(b)
}

func (p *Probe) Fetch(ctx context.Context) ([]catalog.Item, int, error) {
	id := p.advance()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	url := fmt.Sprintf(p.tpl, id, p.token())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("probe id %d: %w", id, err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK || !strings.Contains(ct, "image") {
		// Not published yet. Not an error.
		p.log.Debug("probe miss",
			logx.Int("id", id), logx.Int("status", resp.StatusCode), logx.String("content_type", ct))
		return nil, resp.StatusCode, nil
	}

	it := catalog.Item{
		ID:    strconv.Itoa(id),
		URL:   url,
		Image: url,
	}
	return []catalog.Item{it}, resp.StatusCode, nil
}
