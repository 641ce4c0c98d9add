package mixed

import verrors "github.com/vango-dev/vango-mixed/internal/errors"

// Error categories for errors.Is matching.
var (
	// ErrConfiguration matches invalid or ambiguous authority declarations.
	ErrConfiguration = verrors.Kind(verrors.CategoryConfig)

	// ErrCallerMisuse matches programming errors such as attaching twice.
	ErrCallerMisuse = verrors.Kind(verrors.CategoryMisuse)

	// ErrTransport matches every transport failure.
	ErrTransport = verrors.Kind(verrors.CategoryTransport)

	// ErrTransportDisconnected matches a remote runtime that went away.
	ErrTransportDisconnected = verrors.New("E240")

	// ErrRemoteInvocation matches failures of marshaled callbacks.
	ErrRemoteInvocation = verrors.Kind(verrors.CategoryRemote)
)
