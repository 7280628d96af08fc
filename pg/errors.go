package pg

import "errors"

var (
	// ErrInvalidCtrl is returned when a controller ID is out of range or is
	// not registered.
	ErrInvalidCtrl = errors.New("pg: invalid controller")

	// ErrInvalidReason is returned for an empty or unknown reason mask.
	ErrInvalidReason = errors.New("pg: invalid disallow reason")

	// ErrInvalidEvent is returned when an unknown event is posted.
	ErrInvalidEvent = errors.New("pg: invalid event")

	// ErrReasonOwned is returned when a caller tries to clear a reason that
	// only one specific role may clear.
	ErrReasonOwned = errors.New("pg: reason is owned by another role")

	// ErrPermanentDisallow is returned when the idle-snap reason is cleared
	// while the controller is latched in the idle-snap error state.
	ErrPermanentDisallow = errors.New("pg: controller is permanently disallowed")

	// ErrExtUnderflow is returned by AllowExt without a matching DisallowExt.
	ErrExtUnderflow = errors.New("pg: external allow without disallow")

	// ErrInvalidMask is returned when a sub-feature mask is not supported by
	// the controller.
	ErrInvalidMask = errors.New("pg: unsupported sub-feature mask")

	// ErrNotSupported is returned when the controller does not support the
	// requested operation.
	ErrNotSupported = errors.New("pg: operation not supported")
)
