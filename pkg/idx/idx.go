package idx

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in canonical (uppercase Crockford) form. Identities, refresh
// token records, security events and request IDs all use it, so stored rows
// sort by creation time.
type ID string

var ErrInvalid = errors.New("idx: invalid ulid")

// MonotonicEntropy is not safe for concurrent use.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID stamped with the current time.
func New() ID {
	return NewAt(time.Now())
}

// NewAt returns an ID stamped with t. IDs minted within the same millisecond
// are strictly increasing, which keeps newest-first listings stable under a
// frozen test clock.
func NewAt(t time.Time) ID {
	mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(t), entropy)
	mu.Unlock()

	return ID(u.String())
}

// Parse validates s and returns it in canonical form.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return ID(u.String()), nil
}

func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// Time extracts the embedded timestamp, or the zero time for invalid IDs.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
