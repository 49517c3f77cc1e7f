//go:build !linux

package board

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var _ Board = (*RealBoard)(nil)

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(opts Options, log logrus.FieldLogger) (*RealBoard, error) {
	return nil, errors.New("board: not supported on this platform (requires Linux)")
}

func (b *RealBoard) Poll() error                      { return errors.New("board: not supported") }
func (b *RealBoard) AnalogRead(pin int) int           { return ADCMax }
func (b *RealBoard) DigitalRead(pin int) bool         { return true }
func (b *RealBoard) AnalogReadMillivolts(pin int) int { return 0 }
func (b *RealBoard) ConfigureAnalog(pin int) error    { return errors.New("board: not supported") }
func (b *RealBoard) ConfigurePullUp(pin int) error    { return errors.New("board: not supported") }

// Close is a no-op on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
