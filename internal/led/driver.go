package led

import (
	"errors"

	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

// Driver abstracts a panel output sink.
type Driver interface {
	// Send pushes one frame of entries. Order is preserved on the wire.
	Send(entries []proto.Entry) error
	// Close releases resources.
	Close() error
}

// Tee fans each frame out to every driver. Send returns the first error but
// still feeds the remaining drivers.
type Tee []Driver

func (t Tee) Send(entries []proto.Entry) error {
	var first error
	for _, d := range t {
		if err := d.Send(entries); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) Close() error {
	var errs []error
	for _, d := range t {
		errs = append(errs, d.Close())
	}
	return errors.Join(errs...)
}
