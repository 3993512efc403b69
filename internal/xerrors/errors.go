// Package xerrors defines the sentinel error taxonomy shared across every
// edge-vox component. Callers compare with errors.Is; none of these are used
// for control flow inside the library itself.
package xerrors

import "errors"

var (
	// ErrInvalidArgument signals a bad IP literal, a zero port, or a zero
	// payload size at init time.
	ErrInvalidArgument = errors.New("edgevox: invalid argument")

	// ErrDeviceOpen signals the audio host refused to open a device.
	ErrDeviceOpen = errors.New("edgevox: device open failed")

	// ErrSocketOpen signals UDP socket creation or address resolution failed.
	ErrSocketOpen = errors.New("edgevox: socket open failed")

	// ErrNotInitialized signals an operation attempted before init.
	ErrNotInitialized = errors.New("edgevox: not initialized")

	// ErrNotRunning signals an operation that requires a running state.
	ErrNotRunning = errors.New("edgevox: not running")

	// ErrBusy signals a configuration change attempted in the wrong client
	// state.
	ErrBusy = errors.New("edgevox: busy")

	// ErrTransmitShort signals a UDP send wrote fewer bytes than given.
	ErrTransmitShort = errors.New("edgevox: short transmit")

	// ErrPayloadTooLarge signals a payload larger than the sender's
	// configured payload size; the sender does not fragment payloads.
	ErrPayloadTooLarge = errors.New("edgevox: payload too large")
)
