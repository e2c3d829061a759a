package plan

import (
	"crypto/rand"
	"fmt"
)

// IDGenerator produces task ids. Implementations should return short,
// URL-safe strings; uniqueness against the current list is handled by
// NewID, not the generator.
type IDGenerator func() string

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID is the default generator: a 6-character lowercase
// alphanumeric string from crypto/rand.
func RandomID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to
		// a counter-free constant that NewID will retry past.
		return "task00"
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}

// NewID returns an id not present in the file, using gen (or RandomID
// if nil). Collision avoidance is best-effort: after a bounded number
// of retries the id is suffixed with the attempt count.
func (f *File) NewID(gen IDGenerator) string {
	if gen == nil {
		gen = RandomID
	}
	for attempt := 0; ; attempt++ {
		id := gen()
		if attempt >= 8 {
			id = fmt.Sprintf("%s-%d", id, attempt)
		}
		if f.GetTask(id) == nil {
			return id
		}
	}
}
