// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package webclient

import (
	"context"
	"net"
	"time"

	"codeberg.org/miekg/dns"
	"codeberg.org/miekg/dns/dnsutil"
)

const (
	defaultResolver = "1.1.1.1"
	dnsTimeout      = 3 * time.Second
)

// Resolver answers the only DNS question the scan pipeline asks: does this
// domain exist at all. Dead domains fail fast here instead of burning a 45s
// browser navigation.
type Resolver struct {
	addr   string
	client *dns.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		addr: net.JoinHostPort(defaultResolver, "53"),
		client: &dns.Client{
			Transport: &dns.Transport{
				Dialer: &net.Dialer{
					Timeout: dnsTimeout,
				},
				ReadTimeout:  dnsTimeout,
				WriteTimeout: dnsTimeout,
			},
		},
	}
}

// Exists returns false only on a definitive NXDOMAIN. Resolver errors count
// as existing so a flaky resolver never aborts a capture.
func (r *Resolver) Exists(ctx context.Context, domain string) bool {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := dns.NewMsg(dnsutil.Fqdn(domain), qtype)
		msg.RecursionDesired = true

		resp, _, err := r.client.Exchange(ctx, msg, "udp", r.addr)
		if err != nil {
			resp, _, err = r.client.Exchange(ctx, msg, "tcp", r.addr)
		}
		if err != nil {
			return true
		}
		if resp.Rcode == dns.RcodeNameError {
			return false
		}
		if len(resp.Answer) > 0 {
			return true
		}
	}
	return true
}
