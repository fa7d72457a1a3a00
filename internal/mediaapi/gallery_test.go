package mediaapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

func TestGallery_ImagesOnly(t *testing.T) {
	r, mem := newTestAPI(t)
	put(t, mem,
		"gallery/cake_slice.jpg",
		"gallery/menu.pdf",
		"gallery/3f2b8c1e-9d4a-4b6f-8e2a-1c5d7f9b0a12-fresh-bread.WEBP",
		"gallery/deep/nested.png",
	)

	rec := call(r, http.MethodGet, "/api/gallery?prefix=gallery/", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res struct {
		Items []siteconfig.GalleryItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v", res.Items)
	}
	// sorted by key: the uuid-prefixed name sorts first
	if res.Items[0].Alt != "Fresh Bread" || res.Items[1].Alt != "Cake Slice" {
		t.Fatalf("alts = %q, %q", res.Items[0].Alt, res.Items[1].Alt)
	}
	if res.Items[1].ImageURL != "https://cdn.example.com/gallery/cake_slice.jpg" {
		t.Fatalf("url = %q", res.Items[1].ImageURL)
	}
}

func TestGallery_Recursive(t *testing.T) {
	r, mem := newTestAPI(t)
	put(t, mem, "gallery/a.png", "gallery/deep/b.png")

	rec := call(r, http.MethodGet, "/api/gallery?prefix=gallery/&recursive=true", "", false)
	var res struct {
		Items []siteconfig.GalleryItem `json:"items"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v", res.Items)
	}
}

func TestAlt(t *testing.T) {
	cases := map[string]string{
		"uploads/summer-menu_2024.jpg": "Summer Menu 2024",
		"a/.png":                       "Image",
		"plain.svg":                    "Plain",
	}
	for key, want := range cases {
		if got := Alt(key); got != want {
			t.Errorf("Alt(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestIsImageKey(t *testing.T) {
	for key, want := range map[string]bool{"x.JPG": true, "x.avif": true, "x.pdf": false, "noext": false} {
		if IsImageKey(key) != want {
			t.Errorf("IsImageKey(%q) != %v", key, want)
		}
	}
}
