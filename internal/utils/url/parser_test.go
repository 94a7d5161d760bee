package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://shop.example.com/catalog/page-2", "/product/42", "https://shop.example.com/product/42"},
		{"https://shop.example.com/catalog/", "item/7", "https://shop.example.com/catalog/item/7"},
		{"https://shop.example.com/", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
	}
	for _, c := range cases {
		if got := ResolveURL(c.base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", c.base, c.href, got, c.want)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://www.amazon.com/dp/B000", "amazon.com"},
		{"http://EBAY.com/itm/1", "ebay.com"},
		{"https://shop.example.com:8080/p/1", "shop.example.com"},
		{"not a url at all \x7f", ""},
	}
	for _, c := range cases {
		if got := NormalizeDomain(c.in); got != c.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
