package policy

import (
	"fmt"
	"log/slog"
	"strings"
)

// Line is one compiled policy table entry. The action is always
// "encrypt"; exclusions, when present, become a protocols= clause.
type Line struct {
	AddressDomain string
	Exclusions    []string
}

// String renders the line in Postfix tls_policy format:
// "<address_domain> encrypt[ protocols=<tok>:<tok>:...]".
func (l Line) String() string {
	if len(l.Exclusions) == 0 {
		return l.AddressDomain + " encrypt"
	}
	return l.AddressDomain + " encrypt protocols=" + strings.Join(l.Exclusions, ":")
}

// Diagnostic records a non-fatal condition encountered while compiling
// one address domain entry.
type Diagnostic struct {
	AddressDomain string
	Message       string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.AddressDomain, d.Message)
}

// Result is the outcome of compiling a policy document: one line per
// address domain entry, in the document's declared order, plus any
// diagnostics.
type Result struct {
	Lines       []Line
	Diagnostics []Diagnostic
}

// Render produces the full policy table text: newline-joined lines with
// a trailing newline. An empty result renders to the empty string.
func (r Result) Render() string {
	if len(r.Lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range r.Lines {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Compile turns a policy document into ordered policy table lines.
//
// Exactly one line is emitted per address domain entry. When several
// accepted MX domains are declared, the first wins and the rest are
// recorded as ignored, never merged. Unresolvable or unknown MX
// policies drop the exclusion clause for that domain only.
func Compile(list *List) Result {
	var result Result

	for _, entry := range list.Domains {
		domain := NormalizeDomain(entry.Domain)
		line := Line{AddressDomain: domain}

		if len(entry.AcceptMXDomains) == 0 {
			result.diag(domain, "no accepted MX domains declared")
			result.Lines = append(result.Lines, line)
			continue
		}

		if len(entry.AcceptMXDomains) > 1 {
			result.diag(domain, fmt.Sprintf(
				"multiple accepted MX domains; using %s, ignoring %s",
				entry.AcceptMXDomains[0],
				strings.Join(entry.AcceptMXDomains[1:], ", ")))
		}

		mxDomain := entry.AcceptMXDomains[0]
		mxPolicy, ok := list.MXPolicy(mxDomain)
		if !ok {
			result.diag(domain, fmt.Sprintf("no TLS policy for MX domain %s", mxDomain))
			result.Lines = append(result.Lines, line)
			continue
		}

		exclusions, known := mxPolicy.MinTLSVersion.Exclusions()
		if !known {
			result.diag(domain, fmt.Sprintf(
				"unknown minimum TLS version %q for MX domain %s",
				mxPolicy.MinTLSVersion, mxDomain))
		}
		line.Exclusions = exclusions
		result.Lines = append(result.Lines, line)
	}

	return result
}

func (r *Result) diag(domain, message string) {
	slog.Warn("policy compilation diagnostic",
		"address_domain", domain,
		"message", message,
	)
	r.Diagnostics = append(r.Diagnostics, Diagnostic{AddressDomain: domain, Message: message})
}
