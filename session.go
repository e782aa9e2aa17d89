/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package daap

import (
	"context"
	"strconv"
	"sync"

	"github.com/tominsam/godaap/internal/dmap"
	"github.com/tominsam/godaap/internal/envelope"
)

// Session is a logged-in connection: a session id folded into every
// request, plus the Open -> Closed state machine of §4.7. A Session
// outlives the request counter's advances (Track.Open bumps it) but not
// the underlying Client's connection.
type Session struct {
	client    *Client
	transport *envelope.Transport
	sessionID int64

	mtx   sync.Mutex
	state SessionState
}

func newSession(c *Client, transport *envelope.Transport, sessionID int64) *Session {
	return &Session{client: c, transport: transport, sessionID: sessionID, state: SessionOpen}
}

// SessionID is the session id the server assigned at login.
func (s *Session) SessionID() int64 {
	return s.sessionID
}

// State reports whether the session is still Open.
func (s *Session) State() SessionState {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// request merges session-id into params and delegates to the Client,
// failing fast with ErrSessionClosed rather than sending a doomed request
// (§4.5's Session.request).
func (s *Session) request(ctx context.Context, path string, params map[string]string, label string) ([]*dmap.Atom, error) {
	s.mtx.Lock()
	closed := s.state == SessionClosed
	s.mtx.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}
	merged := make(map[string]string, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["session-id"] = strconv.FormatInt(s.sessionID, 10)
	return s.client.getAtoms(ctx, s.transport, path, merged, label)
}

// Update issues /update, returning the server's current revision number
// (dmap.serverrevision), used to detect whether the library has changed
// since a previous revision was observed. Supplements §4.5, which names
// /update in the interfaces table but doesn't spell out its return shape.
func (s *Session) Update() (int64, error) {
	return s.UpdateWithContext(context.Background())
}

func (s *Session) UpdateWithContext(ctx context.Context) (int64, error) {
	atoms, err := s.request(ctx, pathUpdate, nil, "UPDATE")
	if err != nil {
		return 0, err
	}
	rev := dmap.Path(atoms, "dmap.updateresponse", "dmap.serverrevision")
	if rev == nil {
		return 0, ErrNotFound
	}
	v, ok := rev.Int()
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

// Databases lists the databases the server exposes. Most DAAP servers
// expose exactly one.
func (s *Session) Databases() ([]*Database, error) {
	return s.DatabasesWithContext(context.Background())
}

func (s *Session) DatabasesWithContext(ctx context.Context) ([]*Database, error) {
	atoms, err := s.request(ctx, pathDatabases, nil, "DATABASES")
	if err != nil {
		return nil, err
	}
	items := listingItems(atoms)
	dbs := make([]*Database, 0, len(items))
	for _, it := range items {
		dbs = append(dbs, newDatabase(s, it))
	}
	return dbs, nil
}

// Library is shorthand for the first database (§4.5's Session.library).
func (s *Session) Library() (*Database, error) {
	return s.LibraryWithContext(context.Background())
}

func (s *Session) LibraryWithContext(ctx context.Context) (*Database, error) {
	dbs, err := s.DatabasesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(dbs) == 0 {
		return nil, ErrNotFound
	}
	return dbs[0], nil
}

// Logout tears the session down. It is idempotent: a second call, or a
// call after the underlying connection has already failed, is swallowed
// and logged rather than raised (§4.5, §4.7).
func (s *Session) Logout() {
	s.LogoutWithContext(context.Background())
}

func (s *Session) LogoutWithContext(ctx context.Context) {
	s.mtx.Lock()
	if s.state == SessionClosed {
		s.mtx.Unlock()
		return
	}
	s.state = SessionClosed
	s.mtx.Unlock()

	params := map[string]string{"session-id": strconv.FormatInt(s.sessionID, 10)}
	if _, err := s.client.getAtoms(ctx, s.transport, pathLogout, params, "LOGOUT"); err != nil {
		s.client.log.Warnf("logout failed, ignoring: %v", err)
	}
}

// listingItems extracts the dmap.listingitem children of the first
// dmap.listing container in atoms, the common shape of /databases,
// .../items, and .../containers responses.
func listingItems(atoms []*dmap.Atom) []*dmap.Atom {
	listing := dmap.FindAtom(atoms, "dmap.listing")
	if listing == nil {
		return nil
	}
	return dmap.FindAll(listing.Children, "dmap.listingitem")
}
