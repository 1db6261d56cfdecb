package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/posttls/internal/postconf"
	"github.com/roach88/posttls/internal/reconcile"
)

// Version is an agent version tuple, compared lexicographically
// component by component.
type Version []int

// MinSupported is the oldest Postfix version this installer configures.
var MinSupported = Version{2, 6}

// ParseVersion parses a dotted version string such as "3.4.0".
// A non-numeric component is a query error: the value came from the
// configuration store and cannot be interpreted.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, postconf.NewQueryError(
				reconcile.ParamMailVersion,
				fmt.Sprintf("unparsable version component %q in %q", part, s),
				err,
			)
		}
		v[i] = n
	}
	return v, nil
}

// Compare returns -1, 0, or 1 as v sorts before, equal to, or after o.
// Missing components compare as zero, so 2.6 equals 2.6.0.
func (v Version) Compare(o Version) int {
	n := len(v)
	if len(o) > n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v) {
			a = v[i]
		}
		if i < len(o) {
			b = o[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// String renders the version in dotted form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// DefaultStore reads built-in parameter defaults. Implemented by
// postconf.Client.
type DefaultStore interface {
	GetDefault(name string) (string, bool, error)
}

// ProbeVersion reads the agent version from the mail_version built-in
// default.
func ProbeVersion(store DefaultStore) (Version, error) {
	value, ok, err := store.GetDefault(reconcile.ParamMailVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, postconf.NewQueryError(
			reconcile.ParamMailVersion,
			"mail_version default is unset",
			nil,
		)
	}
	return ParseVersion(value)
}

// EnsureSupported rejects versions older than MinSupported.
func EnsureSupported(v Version) error {
	if v.Compare(MinSupported) < 0 {
		return &Error{
			Code:    ErrCodeUnsupportedVersion,
			Message: fmt.Sprintf("Postfix version %s is older than supported minimum %s", v, MinSupported),
		}
	}
	return nil
}
