package policy

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MinTLSVersion is the minimum TLS version a mail exchanger's policy
// requires. Values outside the three known versions compile to a
// diagnostic rather than an error.
type MinTLSVersion string

const (
	MinTLSv10 MinTLSVersion = "TLSv1"
	MinTLSv11 MinTLSVersion = "TLSv1.1"
	MinTLSv12 MinTLSVersion = "TLSv1.2"
)

// Exclusions maps the minimum version to the protocol-exclusion tokens
// emitted in a policy table line. The bool is false for unknown
// versions, in which case no exclusion clause is emitted.
func (v MinTLSVersion) Exclusions() ([]string, bool) {
	switch v {
	case MinTLSv10:
		return []string{"!SSLv2", "!SSLv3"}, true
	case MinTLSv11:
		return []string{"!SSLv2", "!SSLv3", "!TLSv1"}, true
	case MinTLSv12:
		return []string{"!SSLv2", "!SSLv3", "!TLSv1", "!TLSv1.1"}, true
	default:
		return nil, false
	}
}

// AddressDomainPolicy is the policy for one protected sending domain.
type AddressDomainPolicy struct {
	// Domain is the address domain whose outbound mail is protected.
	Domain string

	// AcceptMXDomains lists acceptable mail exchanger domains in the
	// document's declared order. Only the first is used; the rest are
	// reported as ignored.
	AcceptMXDomains []string
}

// MXPolicy is the resolved TLS policy for one mail exchanger domain.
type MXPolicy struct {
	// Domain is the mail exchanger domain the policy applies to.
	Domain string

	// MinTLSVersion is the minimum TLS version the exchanger requires.
	MinTLSVersion MinTLSVersion
}

// List is a loaded, validated TLS policy document: address domain
// entries in declared order plus the MX policy lookup they resolve
// against.
type List struct {
	Domains []AddressDomainPolicy

	mxPolicies map[string]MXPolicy
}

// NewList builds a List. MX policy lookup keys are normalized so
// compilation and lookup agree on domain spelling.
func NewList(domains []AddressDomainPolicy, mxPolicies []MXPolicy) *List {
	byDomain := make(map[string]MXPolicy, len(mxPolicies))
	for _, p := range mxPolicies {
		byDomain[NormalizeDomain(p.Domain)] = p
	}
	return &List{Domains: domains, mxPolicies: byDomain}
}

// MXPolicy resolves the TLS policy for a mail exchanger domain.
func (l *List) MXPolicy(domain string) (MXPolicy, bool) {
	p, ok := l.mxPolicies[NormalizeDomain(domain)]
	return p, ok
}

// NormalizeDomain lowercases a domain name and normalizes it to Unicode
// NFC so equal domains spelled with different codepoint sequences
// compare equal.
func NormalizeDomain(domain string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(domain)))
}
