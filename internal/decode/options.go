package decode

import (
	"fmt"
	"time"
)

// Mode selects the classifier a Decoder uses.
type Mode string

const (
	ModeFence   Mode = "fence"
	ModeBracket Mode = "bracket"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFence, "":
		return ModeFence, nil
	case ModeBracket:
		return ModeBracket, nil
	}
	return "", &ModeError{Mode: s}
}

// ModeError reports an unknown decoder mode.
type ModeError struct {
	Mode string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("unknown decode mode %q (want fence or bracket)", e.Mode)
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMode selects the classifier. The default is ModeFence.
func WithMode(m Mode) Option {
	return func(d *Decoder) {
		d.mode = m
	}
}

// WithFragments enables text.fragment and code.fragment events in fence
// mode, so content shows up before its line completes. Bracket mode always
// emits fragments.
func WithFragments() Option {
	return func(d *Decoder) {
		d.fragments = true
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		d.now = now
	}
}
