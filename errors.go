/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package daap

import (
	"errors"

	"github.com/tominsam/godaap/internal/envelope"
)

// Sentinel errors for this package's own state-machine and tree-query
// guarantees (§7's NotFound kind, and the Client/Session state machines of
// §4.7).
var (
	ErrAlreadyConnected = errors.New("daap: client is already connected")
	ErrNotConnected     = errors.New("daap: client has not been connected yet")
	ErrSessionClosed    = errors.New("daap: session is closed")
	ErrNotFound         = errors.New("daap: required atom was not present in the response")
)

// AuthRequiredError, AuthFailedError, ServerBusyError, ProtocolError, and
// TransportError are re-exported from internal/envelope so callers never
// need to import that package directly to type-switch on a request
// failure.
type (
	AuthRequiredError = envelope.AuthRequiredError
	AuthFailedError   = envelope.AuthFailedError
	ServerBusyError   = envelope.ServerBusyError
	ProtocolError     = envelope.ProtocolError
	TransportError    = envelope.TransportError
)
