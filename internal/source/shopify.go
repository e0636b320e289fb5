package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// Shopify is the bulk-listing source: one GET of <base>/products.json per
// cycle, every product normalized into a catalog.Item.
type Shopify struct {
	name string
	base string
	http *http.Client
	log  logx.Logger
}

type ShopifyConfig struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

func NewShopify(cfg ShopifyConfig, log logx.Logger) *Shopify {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Shopify{
		name: cfg.Name,
		base: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (s *Shopify) Name() string { return s.name }

// Wire shapes of the products.json feed. Only the fields we map are decoded.
type shopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Images   []shopifyImage   `json:"images"`
	Variants []shopifyVariant `json:"variants"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyVariant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

func (s *Shopify) Fetch(ctx context.Context) ([]catalog.Item, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/products.json", nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode products: %w", err)
	}

	items := make([]catalog.Item, 0, len(body.Products))
	for _, p := range body.Products {
		items = append(items, s.normalize(p))
	}
	return items, resp.StatusCode, nil
}

// normalize maps one raw product into the canonical shape. Optional fields
// default to empty values; variants missing a label or id are skipped.
func (s *Shopify) normalize(p shopifyProduct) catalog.Item {
	it := catalog.Item{
		ID:    strconv.FormatInt(p.ID, 10),
		URL:   s.base + "/products/" + p.Handle,
		Title: p.Title,
		Price: "0.00",
	}
	if len(p.Images) > 0 {
		it.Image = p.Images[0].Src
	}
	if len(p.Variants) > 0 && p.Variants[0].Price != "" {
		it.Price = p.Variants[0].Price
	}
	for _, v := range p.Variants {
		if v.Title == "" || v.ID == 0 {
			continue
		}
		it.Variants = append(it.Variants, catalog.Variant{
			Label: v.Title,
			Link:  s.cartLink(v.ID),
		})
	}
	return it
}

// cartLink derives the add-to-cart link deterministically from a variant id.
func (s *Shopify) cartLink(variantID int64) string {
	return s.base + "/cart/" + strconv.FormatInt(variantID, 10) + ":1"
}
