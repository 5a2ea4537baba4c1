package flux

import (
	"errors"
	"floppy/fault"
)

// ErrWriteUnsupported is returned by Source.WriteFlux when the underlying
// transport lacks write capability.
var ErrWriteUnsupported = errors.New("flux: write not supported by this source")

// ErrAborted is returned by any in-flight Source call once Abort has been
// invoked from another goroutine.
var ErrAborted = fault.New(fault.Aborted, "flux", nil)

// AckError converts a hardware AckCode into a *fault.Error with the kind the
// error-handling taxonomy (§7) assigns it.
func AckError(code AckCode) error {
	switch code {
	case AckOK:
		return nil
	case AckWriteProtect:
		return fault.New(fault.WriteProtected, "flux", errors.New("write protected"))
	case AckFluxOverflow:
		return fault.New(fault.LimitExceeded, "flux", errors.New("flux overflow"))
	case AckFluxUnderflow:
		return fault.New(fault.IO, "flux", errors.New("flux underflow"))
	case AckNoIndex:
		return fault.New(fault.IO, "flux", errors.New("no index pulse"))
	case AckNoTrack0:
		return fault.New(fault.IO, "flux", errors.New("no track 0"))
	case AckBadCommand:
		return fault.New(fault.Format, "flux", errors.New("bad command"))
	case AckNoUnit, AckNoBus, AckBadUnit:
		return fault.New(fault.IO, "flux", errors.New("device/unit unavailable"))
	case AckBadPin:
		return fault.New(fault.Format, "flux", errors.New("bad pin"))
	case AckBadCylinder:
		return fault.New(fault.OutOfBounds, "flux", errors.New("bad cylinder"))
	default:
		return fault.New(fault.IO, "flux", errors.New("unknown ack code"))
	}
}
