// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package webclient

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"https://example.com", "example.com"},
		{"http://www.example.com/path?q=1", "example.com"},
		{"WWW.Example.COM", "example.com"},
		{"example.com:8443", "example.com"},
		{"example.com.", "example.com"},
		{"  news.site.co.uk  ", "news.site.co.uk"},
		{"//cdn.example.org/asset.js", "cdn.example.org"},
	}

	for _, tt := range tests {
		got, err := Canonicalize(tt.in)
		if err != nil {
			t.Errorf("Canonicalize(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"   ",
		"https://",
		"no-dots",
		"bad..domain.com",
		"-leading.example.com",
		"example.c0m1",
	}

	for _, in := range invalid {
		if got, err := Canonicalize(in); err == nil {
			t.Errorf("Canonicalize(%q) = %q, expected error", in, got)
		}
	}
}

func TestCanonicalize_IDN(t *testing.T) {
	got, err := Canonicalize("münchen.de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "xn--mnchen-3ya.de" {
		t.Errorf("expected punycode form, got %q", got)
	}
}

func TestValidDomain(t *testing.T) {
	valid := []string{"example.com", "sub.example.com", "a.co"}
	for _, d := range valid {
		if !ValidDomain(d) {
			t.Errorf("expected %q to be valid", d)
		}
	}

	invalid := []string{"com", "", ".example.com", "example-.com", "1.2.3.4.5.6.7.8.9.10.11"}
	for _, d := range invalid {
		if ValidDomain(d) {
			t.Errorf("expected %q to be invalid", d)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.0.0.1", "192.168.1.1", "127.0.0.1", "169.254.1.1", "100.64.0.1", "0.0.0.0"}
	for _, ip := range private {
		if !IsPrivateIP(ip) {
			t.Errorf("expected %s to be private", ip)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34"}
	for _, ip := range public {
		if IsPrivateIP(ip) {
			t.Errorf("expected %s to be public", ip)
		}
	}
}
