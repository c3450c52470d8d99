package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// esmSuffix is a module-loader modifier some CDNs append that breaks plain script loads.
const esmSuffix = "/+esm"

// ErrNoLocators is returned by LoadFirst when given nothing to try.
var ErrNoLocators = errors.New("no decoder locators configured")

// SanitizeLocator repairs a decoder library locator before it is loaded. A base
// prefix that was accidentally prepended to an already absolute locator is
// collapsed ("P" + "P" + rest becomes "P" + rest) and a trailing "/+esm" modifier
// is stripped. Clean locators are returned unchanged.
func SanitizeLocator(raw string) string {
	loc := strings.TrimSpace(raw)
	for {
		collapsed, ok := collapsePrefix(loc)
		if !ok {
			break
		}
		loc = collapsed
	}
	for strings.HasSuffix(loc, esmSuffix) {
		loc = strings.TrimSuffix(loc, esmSuffix)
	}
	return loc
}

func collapsePrefix(loc string) (string, bool) {
	scheme := strings.Index(loc, "://")
	if scheme <= 0 {
		return loc, false
	}
	start := scheme + len("://")
	next := strings.Index(loc[start:], "://")
	if next < 0 {
		return loc, false
	}
	// Walk back from the second "://" to the start of its scheme.
	end := start + next
	cut := end
	for cut > start && isSchemeChar(loc[cut-1]) {
		cut--
	}
	prefix := loc[:cut]
	if !strings.HasSuffix(prefix, "/") || !strings.HasPrefix(loc[cut:], prefix) {
		return loc, false
	}
	return loc[cut:], true
}

func isSchemeChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'
}

// LoadFirst sanitizes each candidate and tries them in order, returning the
// first locator that load accepts. When every candidate fails the last failure
// is returned.
func LoadFirst(ctx context.Context, candidates []string, load func(context.Context, string) error) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoLocators
	}
	var lastErr error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		loc := SanitizeLocator(candidate)
		if loc == "" {
			lastErr = fmt.Errorf("empty locator %q", candidate)
			continue
		}
		if err := load(ctx, loc); err != nil {
			lastErr = fmt.Errorf("load %s: %w", loc, err)
			continue
		}
		return loc, nil
	}
	return "", lastErr
}
