// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package webclient

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	labelRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
	tldRegex   = regexp.MustCompile(`^[a-z]{2,}$`)
)

const maxLabelDepth = 10

// Canonicalize reduces caller input to the bare host form stored on scan
// results: no scheme, no www. prefix, no path, no port, lowercase ASCII.
func Canonicalize(raw string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	for _, scheme := range []string{"https://", "http://", "//"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, ".")
	s = strings.TrimPrefix(s, "www.")

	p := idna.New(idna.MapForLookup(), idna.Transitional(false))
	ascii, err := p.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", raw, err)
	}

	if !ValidDomain(ascii) {
		return "", fmt.Errorf("invalid domain %q", raw)
	}
	return ascii, nil
}

// ValidDomain checks structural validity of an already-lowercased ASCII host.
func ValidDomain(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}
	if strings.Contains(domain, "..") || strings.HasPrefix(domain, ".") || strings.HasPrefix(domain, "-") {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 || len(labels) > maxLabelDepth {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		if !labelRegex.MatchString(label) {
			return false
		}
	}
	return tldRegex.MatchString(labels[len(labels)-1])
}
