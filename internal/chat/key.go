package chat

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// StampLayout is the ISO-8601 form used in keys: UTC, millisecond
// resolution, fixed width. Fixed width keeps lexicographic order equal to
// chronological order.
const StampLayout = "2006-01-02T15:04:05.000Z"

const (
	keyInfix  = " data "
	suffixSep = "~"
)

// Key suffix modes.
const (
	SuffixNone = "none"
	SuffixULID = "ulid"
)

// FormatStamp renders t in StampLayout.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// FormatKey builds "<name> data <stamp>" with an optional "~<suffix>".
func FormatKey(name string, at time.Time, suffix string) string {
	key := name + keyInfix + FormatStamp(at)
	if suffix != "" {
		key += suffixSep + suffix
	}
	return key
}

// KeyParts is a parsed record key.
type KeyParts struct {
	Name   string
	Stamp  string
	Suffix string
	Time   time.Time
}

// ParseKey splits a record key. A key that is a bare timestamp is accepted.
// ok is false when the timestamp segment does not parse.
func ParseKey(key string) (KeyParts, bool) {
	var parts KeyParts
	rest := key
	if idx := strings.LastIndex(key, keyInfix); idx >= 0 {
		parts.Name = key[:idx]
		rest = key[idx+len(keyInfix):]
	}
	parts.Stamp, parts.Suffix, _ = strings.Cut(rest, suffixSep)
	t, err := time.Parse(time.RFC3339, parts.Stamp)
	if err != nil {
		return parts, false
	}
	parts.Time = t
	return parts, true
}

// NormalizeSuffix maps a configured suffix mode to a known one.
func NormalizeSuffix(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", SuffixNone:
		return SuffixNone, nil
	case SuffixULID:
		return SuffixULID, nil
	default:
		return "", fmt.Errorf("unknown key suffix mode %q", mode)
	}
}

// Keyer issues record keys for one widget. The commit instant is captured
// from the clock when Next is called and never goes backwards between
// calls. Not safe for concurrent use.
type Keyer struct {
	name    string
	now     func() time.Time
	suffix  string
	last    time.Time
	entropy *ulid.MonotonicEntropy
}

// NewKeyer creates a Keyer. A nil clock means time.Now; an unknown suffix
// mode falls back to none.
func NewKeyer(name string, now func() time.Time, suffix string) *Keyer {
	if now == nil {
		now = time.Now
	}
	mode, err := NormalizeSuffix(suffix)
	if err != nil {
		mode = SuffixNone
	}
	k := &Keyer{name: name, now: now, suffix: mode}
	if mode == SuffixULID {
		k.entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	}
	return k
}

// Next returns a fresh key and the instant it encodes.
func (k *Keyer) Next() (string, time.Time) {
	at := k.now().UTC().Truncate(time.Millisecond)
	if at.Before(k.last) {
		at = k.last
	}
	k.last = at

	suffix := ""
	if k.entropy != nil {
		suffix = ulid.MustNew(ulid.Timestamp(at), k.entropy).String()
	}
	return FormatKey(k.name, at, suffix), at
}
