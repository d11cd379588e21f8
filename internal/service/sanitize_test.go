package service

import "testing"

func TestFlattenHTMLPassthrough(t *testing.T) {
	plain := "This looks like **eczema**.\n\n- keep it dry\n- avoid soap"
	if got := FlattenHTML(plain); got != plain {
		t.Fatalf("plain text must pass through untouched, got %q", got)
	}

	// a lone < is not markup
	math := "if size < 5mm, monitor it"
	if got := FlattenHTML(math); got != math {
		t.Fatalf("expected %q untouched, got %q", math, got)
	}
}

func TestFlattenHTMLStripsMarkup(t *testing.T) {
	got := FlattenHTML("<p>Hello <b>world</b></p>")
	if got != "Hello world" {
		t.Fatalf("expected flattened text, got %q", got)
	}
}
