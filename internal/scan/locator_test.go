package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeLocator(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example/npm/https://cdn.example/npm/lib@1/index.js/+esm": "https://cdn.example/npm/lib@1/index.js",
		"https://cdn.example/npm/lib@1/index.js":                              "https://cdn.example/npm/lib@1/index.js",
		"https://cdn.example/npm/lib@1/index.js/+esm":                         "https://cdn.example/npm/lib@1/index.js",
		"https://a.example/x/?ref=https://b.example/":                         "https://a.example/x/?ref=https://b.example/",
		"https://a.example/x/https://b.example/lib.js":                        "https://a.example/x/https://b.example/lib.js",
		"  /static/decoder.js  ":                                              "/static/decoder.js",
	}
	for in, want := range cases {
		if got := SanitizeLocator(in); got != want {
			t.Fatalf("SanitizeLocator(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadFirstTriesInOrder(t *testing.T) {
	var tried []string
	load := func(_ context.Context, loc string) error {
		tried = append(tried, loc)
		if strings.Contains(loc, "good") {
			return nil
		}
		return errors.New("unreachable")
	}
	got, err := LoadFirst(context.Background(), []string{
		"https://bad.example/lib.js",
		"https://good.example/https://good.example/lib.js/+esm",
		"https://never.example/lib.js",
	}, load)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	if got != "https://good.example/lib.js" {
		t.Fatalf("unexpected locator %q", got)
	}
	if len(tried) != 2 {
		t.Fatalf("expected to stop at the first success, tried %v", tried)
	}
}

func TestLoadFirstReturnsLastFailure(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	load := func(_ context.Context, loc string) error {
		if strings.Contains(loc, "first") {
			return errA
		}
		return errB
	}
	_, err := LoadFirst(context.Background(), []string{"https://first.example/", "https://second.example/"}, load)
	if !errors.Is(err, errB) || errors.Is(err, errA) {
		t.Fatalf("expected last failure, got %v", err)
	}
	if _, err := LoadFirst(context.Background(), nil, load); !errors.Is(err, ErrNoLocators) {
		t.Fatalf("expected ErrNoLocators, got %v", err)
	}
}
