package hdlutils

import (
	"github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~int32 | ~uint32 | ~uint64
}

// ErrOutOfRange is the error returned from CheckRange if the number being tested falls outside its bounds
var ErrOutOfRange = errors.New("value out of range")

// CheckRange verifies that min <= number <= max
func CheckRange[T Number](number, min, max T, name string) error {
	if number < min || number > max {
		return errors.Wrapf(ErrOutOfRange, "%s is %d, must be between %d and %d", name, number, min, max)
	}
	return nil
}
