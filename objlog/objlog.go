/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package objlog traces DAAP requests and their decoded responses. A Client
// tags every outbound request with a correlation id from NewRequestID so
// that a track-media request, whose response may be read long after the
// request counter has advanced again, can still be matched back to the
// request that produced it.
package objlog

import "github.com/google/uuid"

// ObjLog is implemented by anything that wants to observe every DAAP
// request/response pair as it happens: the request path, the HTTP method,
// and whatever was decoded from (or sent in) the body.
type ObjLog interface {
	Close() error
	Log(id, method string, obj interface{}) error
}

// NewRequestID returns a fresh correlation id for use as the id argument to
// Log. It is cheap enough to call on every request; Client does so
// unconditionally even when the configured ObjLog is a NilObjLogger.
func NewRequestID() string {
	return uuid.NewString()
}

// NilObjLogger is an empty implementation of the ObjLog interface for use when no logging is desired.
type NilObjLogger struct {
}

// NewNilLogger generates an empty/do nothing logger that implements the ObjLog interface.
func NewNilLogger() (ObjLog, error) {
	return &NilObjLogger{}, nil
}

// Log implements the Log method on the interface, NilObjLogger does nothing.
func (nol *NilObjLogger) Log(id, method string, obj interface{}) error {
	return nil
}

// Close implements the Close method on the interface, NilObjLogger does nothing.
func (nol *NilObjLogger) Close() error {
	return nil
}
