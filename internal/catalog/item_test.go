package catalog

import "testing"

func TestSafeLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{in: "10.5", want: "10_5"},
		{in: "9", want: "9"},
		{in: "8.5.5", want: "8_5_5"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := SafeLabel(tt.in); got != tt.want {
			t.Fatalf("SafeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinkIndex(t *testing.T) {
	t.Parallel()
	it := Item{
		ID:  "1",
		URL: "https://shop.example/products/x",
		Variants: []Variant{
			{Label: "10.5", Link: "https://shop.example/cart/111:1"},
			{Label: "11", Link: "https://shop.example/cart/222:1"},
		},
	}

	idx := it.LinkIndex()
	if len(idx) != 2 {
		t.Fatalf("LinkIndex len = %d, want 2", len(idx))
	}
	if idx["10_5"] != "https://shop.example/cart/111:1" {
		t.Fatalf("unexpected link for 10_5: %q", idx["10_5"])
	}
	if _, ok := idx["10.5"]; ok {
		t.Fatal("raw dotted label must not appear as a key")
	}

	if (Item{}).LinkIndex() != nil {
		t.Fatal("LinkIndex of an item without variants should be nil")
	}
}
