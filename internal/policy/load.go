package policy

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a TLS policy document from a CUE file, validates it
// against the embedded schema, and decodes it into a List.
//
// Address domain entries preserve the document's declared order, which
// fixes the order of compiled policy table lines.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("reading policy document: %v", err),
		}
	}
	return Parse(data, path)
}

// Parse validates and decodes a policy document held in memory.
// The filename is used for error positions only.
func Parse(data []byte, filename string) (*List, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("policy-schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a programming
		// error, not a document error.
		return nil, fmt.Errorf("compiling embedded policy schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, &LoadError{
			Code:    ErrCodeParse,
			Message: fmt.Sprintf("parsing policy document: %v", err),
		}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("validating policy document: %v", err),
		}
	}

	domains, err := decodeDomains(unified)
	if err != nil {
		return nil, err
	}
	mxPolicies, err := decodeMXPolicies(unified)
	if err != nil {
		return nil, err
	}

	if len(domains) == 0 {
		return nil, &LoadError{
			Code:    ErrCodeInvalid,
			Message: "policy document declares no address domains",
		}
	}

	return NewList(domains, mxPolicies), nil
}

// decodeDomains extracts address domain entries in declaration order.
func decodeDomains(v cue.Value) ([]AddressDomainPolicy, error) {
	policies := v.LookupPath(cue.MakePath(cue.Str("policies")))
	if !policies.Exists() {
		return nil, nil
	}

	iter, err := policies.Fields()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("iterating policies: %v", err),
		}
	}

	var domains []AddressDomainPolicy
	for iter.Next() {
		var mxs []string
		mxVal := iter.Value().LookupPath(cue.MakePath(cue.Str("accept-mx-domains")))
		if mxVal.Exists() {
			if err := mxVal.Decode(&mxs); err != nil {
				return nil, &LoadError{
					Code:    ErrCodeInvalid,
					Message: fmt.Sprintf("policies.%s: decoding accept-mx-domains: %v", iter.Selector(), err),
				}
			}
		}
		domains = append(domains, AddressDomainPolicy{
			Domain:          selectorString(iter.Selector()),
			AcceptMXDomains: mxs,
		})
	}
	return domains, nil
}

// decodeMXPolicies extracts the per-exchanger resolved policies.
func decodeMXPolicies(v cue.Value) ([]MXPolicy, error) {
	mxVal := v.LookupPath(cue.MakePath(cue.Str("mx-policies")))
	if !mxVal.Exists() {
		return nil, nil
	}

	iter, err := mxVal.Fields()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("iterating mx-policies: %v", err),
		}
	}

	var policies []MXPolicy
	for iter.Next() {
		var entry struct {
			MinTLSVersion string `json:"min-tls-version"`
		}
		if err := iter.Value().Decode(&entry); err != nil {
			return nil, &LoadError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("mx-policies.%s: %v", iter.Selector(), err),
			}
		}
		policies = append(policies, MXPolicy{
			Domain:        selectorString(iter.Selector()),
			MinTLSVersion: MinTLSVersion(entry.MinTLSVersion),
		})
	}
	return policies, nil
}

// selectorString returns the unquoted field name for a selector.
func selectorString(sel cue.Selector) string {
	return sel.Unquoted()
}
