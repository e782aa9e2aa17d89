/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package daap is a client library for the Digital Audio Access Protocol,
// the HTTP-framed DMAP dialect iTunes and compatible servers (Rhythmbox,
// Firefly/mt-daapd, DAAP-sharing NAS boxes) use to share a music library.
//
// A Client owns one HTTP connection and the process of authenticating a
// Session against it:
//
//	c, _ := daap.New()
//	if err := c.Connect("media-server.local", daap.DefaultPort); err != nil {
//		log.Fatal(err)
//	}
//	sess, err := c.Login()
//	lib, err := sess.Library()
//	tracks, err := lib.Tracks()
package daap

import (
	"context"
	"net/http"
	"sync"

	"github.com/tominsam/godaap/daaplog"
	"github.com/tominsam/godaap/internal/dmap"
	"github.com/tominsam/godaap/internal/envelope"
	"github.com/tominsam/godaap/objlog"
)

// DefaultPort is the standard DAAP port, used when Connect is called with
// port 0.
const DefaultPort = 3689

// Options configures a Client. The zero Options passed to NewOpts (or the
// defaults New applies) covers the common case; this mirrors the
// Opts/NewOpts constructor split the client package this library is
// patterned on uses for its own HTTP client.
type Options struct {
	// HTTPClient is the transport to issue requests over. A nil value
	// uses http.DefaultClient.
	HTTPClient *http.Client

	// ObjLogger receives a traced copy of every decoded request/response.
	// A nil value installs objlog.NewNilLogger().
	ObjLogger objlog.ObjLog

	// Logger receives lifecycle and teardown diagnostics (failed logout,
	// degraded NotFound results, and so on). A nil value discards them.
	Logger *daaplog.Logger

	// Registry lets several Clients share one content-code registry, per
	// the protocol's note that the registry is a process-wide shared
	// resource once more than one Client is open concurrently. A nil
	// value gives this Client its own, process-local registry.
	Registry *dmap.Registry
}

// Client is a single DAAP connection and its accompanying state machine:
// New -> Connected -> Destroyed (see ClientState).
type Client struct {
	mtx   sync.Mutex
	state ClientState

	httpClient *http.Client
	transport  *envelope.Transport
	registry   *dmap.Registry
	objLog     objlog.ObjLog
	log        *daaplog.Logger
}

// New returns a Client with default options. Call Connect before using it.
func New() (*Client, error) {
	return NewOpts(Options{})
}

// NewOpts returns a Client configured by opts. Call Connect before using
// it.
func NewOpts(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	objLog := opts.ObjLogger
	if objLog == nil {
		objLog, _ = objlog.NewNilLogger()
	}
	logger := opts.Logger
	if logger == nil {
		logger = daaplog.NewDiscard()
	}
	reg := opts.Registry
	if reg == nil {
		reg = dmap.NewRegistry()
	}
	return &Client{
		state:      StateNew,
		httpClient: httpClient,
		registry:   reg,
		objLog:     objLog,
		log:        logger,
	}, nil
}

// State reports the Client's current position in its New -> Connected ->
// Destroyed state machine.
func (c *Client) State() ClientState {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// Close releases the Client's idle HTTP connections and transitions it to
// StateDestroyed, the terminal state of §4.7's New -> Connected ->
// Destroyed machine. Mirrors the teacher's own Client.Close, which closes
// its http.Client's idle connections the same way; DAAP has no server-side
// teardown call for the Client itself (only Session.Logout does), so
// there's nothing to send over the wire here.
func (c *Client) Close() error {
	return c.Destroy()
}

// Destroy is an alias for Close using this protocol's state-machine name.
// It is safe to call more than once: CloseIdleConnections is idempotent,
// and StateDestroyed has nowhere further to transition to.
func (c *Client) Destroy() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.httpClient.CloseIdleConnections()
	c.state = StateDestroyed
	return nil
}

// Connect opens the HTTP connection to host:port (port defaults to
// DefaultPort when 0), then issues /content-codes and /server-info to
// bootstrap the content-code registry and detect old-iTunes servers
// (§4.5). Calling Connect twice returns ErrAlreadyConnected. Any failure
// during the handshake leaves the Client in StateNew with no connection
// retained.
func (c *Client) Connect(host string, port int) error {
	return c.ConnectWithContext(context.Background(), host, port)
}

// ConnectWithContext is Connect with an explicit context.
func (c *Client) ConnectWithContext(ctx context.Context, host string, port int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != StateNew {
		return ErrAlreadyConnected
	}
	if port == 0 {
		port = DefaultPort
	}

	transport := envelope.NewTransport(c.httpClient, host, port)

	codesAtoms, err := c.getAtoms(ctx, transport, pathContentCodes, nil, "CONNECT content-codes")
	if err != nil {
		return err
	}
	var root *dmap.Atom
	for _, a := range codesAtoms {
		if dmap.IsContentCodesResponse(a.Name) {
			root = a
			break
		}
	}
	if root == nil {
		return &envelope.ProtocolError{Path: pathContentCodes, Reason: "response did not contain dmap.contentcodesresponse"}
	}
	if err := c.registry.Ingest(root, c.log.Debugf); err != nil {
		return err
	}

	infoAtoms, err := c.getAtoms(ctx, transport, pathServerInfo, nil, "CONNECT server-info")
	if err != nil {
		return err
	}
	oldItunes := false
	if apro := dmap.FindAtom(infoAtoms, "daap.protocolversion"); apro != nil {
		if v, ok := apro.Version(); ok && v.Major == 2 {
			oldItunes = true
		}
	}
	transport.SetOldItunes(oldItunes)

	c.transport = transport
	c.state = StateConnected
	return nil
}

// ServerInfo returns the decoded /server-info response tree, re-fetched
// fresh rather than reused from Connect, so callers see the server's current self-description
// (supported auth schemes, share name, and so on) rather than a cached
// snapshot. Supplements §4.5, which only specifies the apro check.
func (c *Client) ServerInfo() (*dmap.Atom, error) {
	return c.ServerInfoWithContext(context.Background())
}

func (c *Client) ServerInfoWithContext(ctx context.Context) (*dmap.Atom, error) {
	transport, err := c.connectedTransport()
	if err != nil {
		return nil, err
	}
	atoms, err := c.getAtoms(ctx, transport, pathServerInfo, nil, "GET server-info")
	if err != nil {
		return nil, err
	}
	root := dmap.Path(atoms, "dmap.serverinforesponse")
	if root == nil {
		return nil, ErrNotFound
	}
	return root, nil
}

// Login authenticates against the connected server and returns a Session.
// The session id is the first mlid descendant of the /login response; its
// absence is reported as ErrNotFound rather than left silently zero.
func (c *Client) Login() (*Session, error) {
	return c.LoginWithContext(context.Background())
}

func (c *Client) LoginWithContext(ctx context.Context) (*Session, error) {
	transport, err := c.connectedTransport()
	if err != nil {
		return nil, err
	}
	atoms, err := c.getAtoms(ctx, transport, pathLogin, nil, "LOGIN")
	if err != nil {
		return nil, err
	}
	mlid := dmap.FindAtom(atoms, "dmap.sessionid")
	if mlid == nil {
		c.log.Warnf("login response missing dmap.sessionid")
		return nil, ErrNotFound
	}
	sessionID, ok := mlid.Int()
	if !ok {
		c.log.Warnf("dmap.sessionid atom was not an integer")
		return nil, ErrNotFound
	}
	return newSession(c, transport, sessionID), nil
}

// connectedTransport returns the live transport or ErrNotConnected, so
// every façade method fails the same way if called before Connect.
func (c *Client) connectedTransport() (*envelope.Transport, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != StateConnected {
		return nil, ErrNotConnected
	}
	return c.transport, nil
}

// getAtoms performs a GET and decodes its body against the registry,
// tracing the result through objLog under a fresh correlation id, so a
// JSONObjLogger trace file can be grepped for one request's id even after
// the request counter has moved on. A single top-level atom is traced as
// itself, so its symbolic name lands in the trace header.
func (c *Client) getAtoms(ctx context.Context, transport *envelope.Transport, path string, params map[string]string, label string) ([]*dmap.Atom, error) {
	id := objlog.NewRequestID()
	res, err := transport.GetWithContext(ctx, path, params, envelope.Options{})
	if err != nil {
		c.objLog.Log(id, label+" error: "+err.Error(), nil)
		return nil, err
	}
	if res.NoBody {
		c.objLog.Log(id, label, nil)
		return nil, nil
	}
	atoms, err := dmap.Decode(res.Body, c.registry)
	if err != nil {
		return nil, &envelope.ProtocolError{Path: path, Reason: err.Error()}
	}
	var traced interface{} = atomSlice(atoms)
	if len(atoms) == 1 {
		traced = atoms[0]
	}
	c.objLog.Log(id, label, traced)
	return atoms, nil
}

// atomSlice lets a []*dmap.Atom satisfy json.Marshaler the same way a
// lone *dmap.Atom does, so objlog can trace multi-atom top levels too.
type atomSlice []*dmap.Atom

func (as atomSlice) MarshalJSON() ([]byte, error) {
	root := &dmap.Atom{Type: dmap.TypeContainer, Children: []*dmap.Atom(as)}
	return root.MarshalJSON()
}
