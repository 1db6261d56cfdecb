package policy

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinTLSVersion_Exclusions(t *testing.T) {
	tests := []struct {
		version MinTLSVersion
		want    []string
		known   bool
	}{
		{MinTLSv10, []string{"!SSLv2", "!SSLv3"}, true},
		{MinTLSv11, []string{"!SSLv2", "!SSLv3", "!TLSv1"}, true},
		{MinTLSv12, []string{"!SSLv2", "!SSLv3", "!TLSv1", "!TLSv1.1"}, true},
		{MinTLSVersion("TLSv1.3"), nil, false},
		{MinTLSVersion(""), nil, false},
	}
	for _, tt := range tests {
		got, known := tt.version.Exclusions()
		assert.Equal(t, tt.known, known, "version %q", tt.version)
		assert.Equal(t, tt.want, got, "version %q", tt.version)
	}
}

func TestCompile_SingleDomain(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com", AcceptMXDomains: []string{"mx.example.com"}},
		},
		[]MXPolicy{
			{Domain: "mx.example.com", MinTLSVersion: MinTLSv12},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "example.com encrypt protocols=!SSLv2:!SSLv3:!TLSv1:!TLSv1.1",
		result.Lines[0].String())
	assert.Empty(t, result.Diagnostics)
}

func TestCompile_MultiMXUsesFirstAndRecordsDiagnostic(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com", AcceptMXDomains: []string{"a.example.com", "b.example.com"}},
		},
		[]MXPolicy{
			{Domain: "a.example.com", MinTLSVersion: MinTLSv10},
			{Domain: "b.example.com", MinTLSVersion: MinTLSv12},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1, "exactly one line per address domain")
	assert.Equal(t, "example.com encrypt protocols=!SSLv2:!SSLv3",
		result.Lines[0].String(), "first MX domain's policy wins")

	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "b.example.com")
	assert.Contains(t, result.Diagnostics[0].Message, "ignoring")
}

func TestCompile_UnknownMinVersionEmitsLineWithoutClause(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com", AcceptMXDomains: []string{"mx.example.com"}},
		},
		[]MXPolicy{
			{Domain: "mx.example.com", MinTLSVersion: MinTLSVersion("TLSv9")},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "example.com encrypt", result.Lines[0].String())
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "TLSv9")
}

func TestCompile_MissingMXPolicyEmitsLineWithoutClause(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com", AcceptMXDomains: []string{"mx.example.com"}},
		},
		nil,
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "example.com encrypt", result.Lines[0].String())
	require.Len(t, result.Diagnostics, 1)
}

func TestCompile_NoMXDomainsEmitsLineWithoutClause(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com"},
		},
		nil,
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "example.com encrypt", result.Lines[0].String())
	require.Len(t, result.Diagnostics, 1)
}

func TestCompile_DiagnosticsDoNotAbortRemainingEntries(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "broken.example", AcceptMXDomains: []string{"nowhere.example"}},
			{Domain: "fine.example", AcceptMXDomains: []string{"mx.fine.example"}},
		},
		[]MXPolicy{
			{Domain: "mx.fine.example", MinTLSVersion: MinTLSv11},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, "broken.example encrypt", result.Lines[0].String())
	assert.Equal(t, "fine.example encrypt protocols=!SSLv2:!SSLv3:!TLSv1",
		result.Lines[1].String())
}

func TestCompile_NormalizesDomains(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "EXAMPLE.com ", AcceptMXDomains: []string{"MX.Example.COM"}},
		},
		[]MXPolicy{
			{Domain: "mx.example.com", MinTLSVersion: MinTLSv12},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "example.com", result.Lines[0].AddressDomain)
	assert.NotEmpty(t, result.Lines[0].Exclusions, "MX lookup is case-insensitive")
}

func TestCompile_PreservesDeclaredOrder(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "z.example", AcceptMXDomains: []string{"mx.z.example"}},
			{Domain: "a.example", AcceptMXDomains: []string{"mx.a.example"}},
			{Domain: "m.example", AcceptMXDomains: []string{"mx.m.example"}},
		},
		[]MXPolicy{
			{Domain: "mx.z.example", MinTLSVersion: MinTLSv10},
			{Domain: "mx.a.example", MinTLSVersion: MinTLSv11},
			{Domain: "mx.m.example", MinTLSVersion: MinTLSv12},
		},
	)

	result := Compile(list)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, "z.example", result.Lines[0].AddressDomain)
	assert.Equal(t, "a.example", result.Lines[1].AddressDomain)
	assert.Equal(t, "m.example", result.Lines[2].AddressDomain)
}

func TestResult_Render_Golden(t *testing.T) {
	list := NewList(
		[]AddressDomainPolicy{
			{Domain: "example.com", AcceptMXDomains: []string{"mx.example.com"}},
			{Domain: "example.net", AcceptMXDomains: []string{"mx1.example.net", "mx2.example.net"}},
			{Domain: "example.org", AcceptMXDomains: []string{"mx.example.org"}},
			{Domain: "legacy.example", AcceptMXDomains: []string{"mx.legacy.example"}},
		},
		[]MXPolicy{
			{Domain: "mx.example.com", MinTLSVersion: MinTLSv12},
			{Domain: "mx1.example.net", MinTLSVersion: MinTLSv11},
			{Domain: "mx.example.org", MinTLSVersion: MinTLSv10},
			{Domain: "mx.legacy.example", MinTLSVersion: MinTLSVersion("SSLv3")},
		},
	)

	result := Compile(list)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tls_policy", []byte(result.Render()))
}

func TestResult_Render_EmptyIsEmptyString(t *testing.T) {
	assert.Equal(t, "", Result{}.Render())
}
