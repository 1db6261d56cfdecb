// Package policy compiles a structured TLS policy document into the
// flat per-destination-domain tls_policy table Postfix consumes.
//
// The compiler is pure and deterministic: the same document in the same
// declared order always produces the same ordered table lines. Entries
// that cannot be fully resolved (extra accepted MX domains, unknown
// minimum TLS versions, missing MX policies) produce non-fatal
// diagnostics and never abort compilation of the remaining entries.
package policy
