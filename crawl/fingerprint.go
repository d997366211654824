package crawl

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 16 hex character digest of text. It is used for
// change detection only.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
