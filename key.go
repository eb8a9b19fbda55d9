package variants

import (
	"errors"
	"strings"
)

// ErrKeyRequired indicates an empty variant key.
var ErrKeyRequired = errors.New("variants: key must not be empty")

// Key names one experiment dimension, e.g. "home_button_color". Keys are
// persisted by variant sources, so renaming one orphans running experiments.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Validate reports ErrKeyRequired for blank keys.
func (k Key) Validate() error {
	if strings.TrimSpace(string(k)) == "" {
		return ErrKeyRequired
	}
	return nil
}
