package export

import "testing"

func TestMimeTableKnownTypes(t *testing.T) {
	table := MimeTable{}
	cases := map[string]string{
		"application/json":                "json",
		"application/json; charset=utf-8": "json",
		"text/plain":                      "txt",
		"image/png":                       "png",
		"APPLICATION/PDF":                 "pdf",
	}
	for ct, want := range cases {
		if got := table.Extension(ct); got != want {
			t.Fatalf("content type %q: expected %q, got %q", ct, want, got)
		}
	}
}

func TestMimeTableUnknownTypes(t *testing.T) {
	table := MimeTable{}
	for _, ct := range []string{"", "   ", "application/x-respane-unknown", "not a mime"} {
		if got := table.Extension(ct); got != "" {
			t.Fatalf("content type %q: expected no extension, got %q", ct, got)
		}
	}
}

func TestPreferredExtension(t *testing.T) {
	if got := preferredExtension([]string{".jpeg", ".jpg", ".jpe"}); got != ".jpe" {
		t.Fatalf("unexpected choice %q", got)
	}
}
