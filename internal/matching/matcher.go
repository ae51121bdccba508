package matching

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoDepositCode means the transfer description carries no resolvable
// deposit code. The transaction is recorded as unmatched for manual review;
// the same description will not change on the next poll, so there is no
// point retrying.
var ErrNoDepositCode = errors.New("no deposit code found in description")

// UserResolver resolves the alphanumeric run that follows the deposit-code
// prefix to the owning user. Implementations match the longest known user id
// that prefixes the run, case-insensitively.
type UserResolver interface {
	ResolveByCodeTail(ctx context.Context, tail string) (string, error)
}

// Matcher extracts deposit codes (a fixed prefix + user id, e.g. NAPcm1x9k2)
// from bank transfer descriptions typed by depositors.
type Matcher struct {
	prefix string
	re     *regexp.Regexp
	users  UserResolver
}

func NewMatcher(prefix string, users UserResolver) *Matcher {
	prefix = strings.ToUpper(prefix)
	return &Matcher{
		prefix: prefix,
		re:     regexp.MustCompile(regexp.QuoteMeta(prefix) + `([A-Z0-9]+)`),
		users:  users,
	}
}

// Code returns the deterministic deposit code for a user.
func (m *Matcher) Code(userID string) string {
	return m.prefix + strings.ToUpper(userID)
}

// Match scans a transfer description for a deposit code and resolves it to a
// user id. Matching is case-insensitive and tolerates whitespace inside the
// code, since descriptions are typed by hand into banking apps.
func (m *Matcher) Match(ctx context.Context, description string) (string, error) {
	normalized := normalize(description)

	for _, sub := range m.re.FindAllStringSubmatch(normalized, -1) {
		tail := sub[1]
		userID, err := m.users.ResolveByCodeTail(ctx, tail)
		if err != nil {
			return "", fmt.Errorf("resolve deposit code: %w", err)
		}
		if userID != "" {
			return userID, nil
		}
	}
	return "", ErrNoDepositCode
}

// normalize uppercases and strips all whitespace.
func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
