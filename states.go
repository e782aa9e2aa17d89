/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package daap

// ClientState is a Client's position in its New -> Connected -> Destroyed
// state machine (§4.7).
type ClientState uint16

const (
	StateNew ClientState = iota
	StateConnected
	StateDestroyed
)

func (cs ClientState) String() string {
	switch cs {
	case StateNew:
		return "NEW"
	case StateConnected:
		return "CONNECTED"
	case StateDestroyed:
		return "DESTROYED"
	default:
	}
	return "UNKNOWN"
}

// SessionState is a Session's position in its Open -> Closed state
// machine. Closed is terminal (§4.7).
type SessionState uint16

const (
	SessionOpen SessionState = iota
	SessionClosed
)

func (ss SessionState) String() string {
	switch ss {
	case SessionOpen:
		return "OPEN"
	case SessionClosed:
		return "CLOSED"
	default:
	}
	return "UNKNOWN"
}
