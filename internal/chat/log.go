package chat

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

// Entry is one row of the derived log.
type Entry struct {
	Key     string
	Stamp   string
	Time    time.Time
	HasTime bool
	Message Message
	// Err is set when the stored value could not be decoded.
	Err     error
}

// OK reports whether the entry decoded cleanly.
func (e Entry) OK() bool {
	return e.Err == nil
}

// DeriveLog turns a record snapshot into entries ordered by key. A nil or
// empty record yields no entries. Undecodable values stay in the log as
// entries carrying Err so the caller can render a placeholder.
func DeriveLog(record map[string]string) []Entry {
	if len(record) == 0 {
		return nil
	}
	keys := lo.Keys(record)
	slices.Sort(keys)

	return lo.Map(keys, func(k string, _ int) Entry {
		entry := Entry{Key: k}
		parts, ok := ParseKey(k)
		entry.Stamp = parts.Stamp
		entry.Time = parts.Time
		entry.HasTime = ok
		decoded := Decode(record[k])
		entry.Message = decoded.Message
		entry.Err = decoded.Err
		return entry
	})
}

// Last returns the newest decodable entry.
func Last(entries []Entry) (Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].OK() {
			return entries[i], true
		}
	}
	return Entry{}, false
}
