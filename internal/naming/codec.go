// Package naming encodes backup container names.
//
// A container name is PREFIX + YYYYMMDD_HHMMSS + "_" + source dataset id. The
// grammar is the only record of backup set membership, so it must round-trip
// byte for byte.
//
// Decoding takes the first 8+6 digit run right after the prefix as the
// instant. A source id that itself starts with such a run is still decoded
// that way; no stricter rule is attempted.
package naming

import (
	"strings"
	"time"
)

const (
	DefaultPrefix = "zzz_backup_"
	Layout        = "20060102_150405"
	Separator     = "_"
)

type Codec struct {
	prefix string
}

type Decoded struct {
	SourceID string
	Instant  time.Time
}

func NewCodec(prefix string) *Codec {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Codec{prefix: prefix}
}

func (c *Codec) Prefix() string {
	return c.prefix
}

func (c *Codec) Encode(instant time.Time, sourceID string) string {
	return c.prefix + instant.UTC().Format(Layout) + Separator + sourceID
}

// HasPrefix reports whether name belongs to the backup namespace, whether or
// not it decodes.
func (c *Codec) HasPrefix(name string) bool {
	return strings.HasPrefix(name, c.prefix)
}

func (c *Codec) Decode(name string) (Decoded, bool) {
	rest, ok := strings.CutPrefix(name, c.prefix)
	if !ok {
		return Decoded{}, false
	}

	parts := strings.Split(rest, Separator)
	if len(parts) < 3 {
		return Decoded{}, false
	}

	date, clock := parts[0], parts[1]
	if len(date) != 8 || len(clock) != 6 || !allDigits(date) || !allDigits(clock) {
		return Decoded{}, false
	}

	instant, err := time.ParseInLocation(Layout, date+Separator+clock, time.UTC)
	if err != nil {
		return Decoded{}, false
	}

	sourceID := strings.Join(parts[2:], Separator)
	if sourceID == "" {
		return Decoded{}, false
	}

	return Decoded{SourceID: sourceID, Instant: instant}, true
}

// Key is the canonical grouping form of an instant.
func Key(instant time.Time) string {
	return instant.UTC().Format(time.RFC3339)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
