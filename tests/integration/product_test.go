//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededProducts {
		t.Fatalf("expected %d products, got %d", seededProducts, len(products))
	}
}

func TestListProducts_Samples(t *testing.T) {
	resp := doGet(t, "/api/products?limit=4")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}

	// The products table is read in barcode order, so samples are a prefix
	// of the full listing.
	all := doGet(t, "/api/products")
	defer all.Body.Close()
	list := decodeJSON[[]productResponse](t, all)
	for i, p := range products {
		if p.Barcode != list[i].Barcode {
			t.Errorf("sample %d: got %q, want %q", i, p.Barcode, list[i].Barcode)
		}
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/8859771700136")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.UnitPrice != 15000 {
		t.Errorf("unitPrice: got %d, want 15000", p.UnitPrice)
	}
	if p.Name == "" {
		t.Error("name is empty")
	}
	if p.Display != "15,000 ກີບ" {
		t.Errorf("display: got %q, want %q", p.Display, "15,000 ກີບ")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/0000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("code: got %d, want 404", body.Code)
	}
}
