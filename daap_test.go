package daap

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tominsam/godaap/internal/dmap"
)

// contentCodesFixture lists every code this test's fake server and client
// code need resolved beyond the registry's own bootstrap set, mirroring
// the real /content-codes dictionary a live DAAP server returns.
var contentCodesFixture = []struct {
	code string
	name string
	typ  int64 // wire dmap.contentcodestype value
}{
	{"msrv", "dmap.serverinforesponse", 12},
	{"apro", "daap.protocolversion", 11},
	{"mlog", "dmap.loginresponse", 12},
	{"mlid", "dmap.sessionid", 6},
	{"mlcl", "dmap.listing", 12},
	{"mlit", "dmap.listingitem", 12},
	{"miid", "dmap.itemid", 6},
	{"minm", "dmap.itemname", 9},
	{"asal", "daap.songalbum", 9},
	{"asar", "daap.songartist", 9},
	{"asfm", "daap.songformat", 9},
	{"astm", "daap.songtime", 6},
	{"musr", "dmap.serverrevision", 6},
	{"mupd", "dmap.updateresponse", 12},
}

func strAtom(code, name, v string) *dmap.Atom {
	return &dmap.Atom{Code: dmap.NewCode(code), Name: name, Type: dmap.TypeString, Value: v}
}

func uintAtom(code, name string, v uint64) *dmap.Atom {
	return &dmap.Atom{Code: dmap.NewCode(code), Name: name, Type: dmap.TypeUint32, Value: v}
}

func containerAtom(code, name string, children ...*dmap.Atom) *dmap.Atom {
	return &dmap.Atom{Code: dmap.NewCode(code), Name: name, Type: dmap.TypeContainer, Children: children}
}

func encodeOrFatal(t *testing.T, a *dmap.Atom) []byte {
	t.Helper()
	b, err := dmap.Encode(a)
	if err != nil {
		t.Fatalf("encode %s: %v", a.Code, err)
	}
	return b
}

func contentCodesBody(t *testing.T) []byte {
	t.Helper()
	dicts := make([]*dmap.Atom, 0, len(contentCodesFixture))
	for _, f := range contentCodesFixture {
		dicts = append(dicts, containerAtom("mdcl", "dmap.dictionary",
			strAtom("mcnm", "dmap.contentcodesnumber", f.code),
			strAtom("mcna", "dmap.contentcodesname", f.name),
			uintAtom16("mcty", "dmap.contentcodestype", uint64(f.typ)),
		))
	}
	root := containerAtom("mccr", "dmap.contentcodesresponse", append([]*dmap.Atom{uintAtom("mstt", "dmap.status", 200)}, dicts...)...)
	return encodeOrFatal(t, root)
}

func uintAtom16(code, name string, v uint64) *dmap.Atom {
	return &dmap.Atom{Code: dmap.NewCode(code), Name: name, Type: dmap.TypeUint16, Value: v}
}

func serverInfoBody(t *testing.T, major, minor uint16) []byte {
	t.Helper()
	root := containerAtom("msrv", "dmap.serverinforesponse",
		uintAtom("mstt", "dmap.status", 200),
		&dmap.Atom{Code: dmap.NewCode("apro"), Name: "daap.protocolversion", Type: dmap.TypeVersion, Value: dmap.Version{Major: major, Minor: minor}},
	)
	return encodeOrFatal(t, root)
}

func loginBody(t *testing.T, sessionID uint64) []byte {
	t.Helper()
	root := containerAtom("mlog", "dmap.loginresponse",
		uintAtom("mstt", "dmap.status", 200),
		uintAtom("mlid", "dmap.sessionid", sessionID),
	)
	return encodeOrFatal(t, root)
}

type fakeTrack struct {
	id             uint64
	name, album, artist, format string
}

func listingBody(t *testing.T, items ...*dmap.Atom) []byte {
	t.Helper()
	root := containerAtom("mlcl", "dmap.listing", items...)
	return encodeOrFatal(t, root)
}

func databaseItem(id uint64, name string) *dmap.Atom {
	return containerAtom("mlit", "dmap.listingitem",
		uintAtom("miid", "dmap.itemid", id),
		strAtom("minm", "dmap.itemname", name),
	)
}

func trackItem(ft fakeTrack) *dmap.Atom {
	return containerAtom("mlit", "dmap.listingitem",
		uintAtom("miid", "dmap.itemid", ft.id),
		strAtom("minm", "dmap.itemname", ft.name),
		strAtom("asal", "daap.songalbum", ft.album),
		strAtom("asar", "daap.songartist", ft.artist),
		strAtom("asfm", "daap.songformat", ft.format),
	)
}

// newFakeDAAPServer builds an httptest.Server that behaves like a small,
// single-database DAAP share: one playlist, two tracks. Its /server-info
// advertises protocol version 3.0 (a modern, non-old-iTunes server).
func newFakeDAAPServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newFakeDAAPServerWithProtocol(t, 3, 0)
}

// newFakeDAAPServerWithProtocol is newFakeDAAPServer parameterized on the
// apro major/minor the fake /server-info advertises, so old-iTunes
// detection (§9: old iTunes when apro's major half is 2) can be exercised.
func newFakeDAAPServerWithProtocol(t *testing.T, aproMajor, aproMinor uint16) *httptest.Server {
	t.Helper()
	tracks := []fakeTrack{
		{1, "Paranoid Android", "OK Computer", "Radiohead", "mp3"},
		{2, "Everything in Its Right Place", "Kid A", "Radiohead", ""},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/content-codes", func(w http.ResponseWriter, r *http.Request) {
		w.Write(contentCodesBody(t))
	})
	mux.HandleFunc("/server-info", func(w http.ResponseWriter, r *http.Request) {
		w.Write(serverInfoBody(t, aproMajor, aproMinor))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write(loginBody(t, 42))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		root := containerAtom("mupd", "dmap.updateresponse",
			uintAtom("mstt", "dmap.status", 200),
			uintAtom("musr", "dmap.serverrevision", 7),
		)
		w.Write(encodeOrFatal(t, root))
	})
	mux.HandleFunc("/databases", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listingBody(t, databaseItem(1, "Library")))
	})
	mux.HandleFunc("/databases/1/items", func(w http.ResponseWriter, r *http.Request) {
		items := make([]*dmap.Atom, 0, len(tracks))
		for _, tr := range tracks {
			items = append(items, trackItem(tr))
		}
		w.Write(listingBody(t, items...))
	})
	mux.HandleFunc("/databases/1/containers", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listingBody(t, databaseItem(9, "Favorites")))
	})
	mux.HandleFunc("/databases/1/containers/9/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listingBody(t, trackItem(tracks[0])))
	})
	mux.HandleFunc("/databases/1/items/1.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not-really-mp3-bytes"))
	})
	mux.HandleFunc("/databases/1/items/2.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("second-track-bytes"))
	})
	return httptest.NewServer(mux)
}

func connectedClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse %q: %v", srv.URL, err)
	}
	port, _ := strconv.Atoi(u.Port())
	c, err := NewOpts(Options{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewOpts: %v", err)
	}
	if err := c.Connect(u.Hostname(), port); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

func TestConnectDetectsModernServer(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	require.Equal(t, StateConnected, c.State())
	require.False(t, c.transport.OldItunes(), "expected old_itunes=false for apro=3.0")
}

// TestConnectDetectsOldItunes exercises §9's resolved open question: an
// apro atom whose major half is 2 selects hash_v2 for every later request,
// regardless of the minor half.
func TestConnectDetectsOldItunes(t *testing.T) {
	srv := newFakeDAAPServerWithProtocol(t, 2, 0)
	defer srv.Close()
	c := connectedClient(t, srv)
	require.True(t, c.transport.OldItunes(), "expected old_itunes=true for apro major=2")
}

func TestConnectTwiceFails(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	require.ErrorIs(t, c.Connect(u.Hostname(), port), ErrAlreadyConnected)
}

func TestLoginReturnsSessionID(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, err := c.Login()
	require.NoError(t, err)
	require.EqualValues(t, 42, sess.SessionID())
}

func TestLibraryAndTracks(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, err := c.Login()
	require.NoError(t, err)
	lib, err := sess.Library()
	require.NoError(t, err)
	require.Equal(t, "Library", lib.Name())
	tracks, err := lib.Tracks()
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "Radiohead", tracks[0].Artist())
	// Second fixture track has an empty daap.songformat; Format() must
	// fall back to mp3.
	require.Equal(t, "mp3", tracks[1].Format())
}

func TestPlaylistsAndPlaylistTracks(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, _ := c.Login()
	lib, _ := sess.Library()
	pls, err := lib.Playlists()
	require.NoError(t, err)
	require.Len(t, pls, 1)
	require.Equal(t, "Favorites", pls[0].Name())
	tracks, err := pls[0].Tracks()
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	require.Equal(t, "Paranoid Android", tracks[0].Name())
}

// TestTrackOpenAdvancesRequestID is invariant 6: after N successful
// Track.Open calls, request_id == N.
func TestTrackOpenAdvancesRequestID(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, _ := c.Login()
	lib, _ := sess.Library()
	tracks, _ := lib.Tracks()

	for i, tr := range tracks {
		rc, err := tr.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		require.NotEmpty(t, data)
		require.Equal(t, i+1, c.transport.RequestID())
	}
}

// TestLogoutIsIdempotent is invariant 7.
func TestLogoutIsIdempotent(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, _ := c.Login()
	sess.Logout()
	sess.Logout() // must not panic or error
	require.Equal(t, SessionClosed, sess.State())
}

func TestSessionRequestsFailAfterLogout(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, _ := c.Login()
	sess.Logout()
	_, err := sess.Databases()
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestUpdateReturnsRevision(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	sess, _ := c.Login()
	rev, err := sess.Update()
	require.NoError(t, err)
	require.EqualValues(t, 7, rev)
}

func TestServerInfoExposesDecodedTree(t *testing.T) {
	srv := newFakeDAAPServer(t)
	defer srv.Close()
	c := connectedClient(t, srv)
	root, err := c.ServerInfo()
	require.NoError(t, err)
	apro := dmap.FindAtom(root.Children, "daap.protocolversion")
	require.NotNil(t, apro, "ServerInfo() tree missing daap.protocolversion")
}

func TestMethodsBeforeConnectFail(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, err = c.Login()
	require.ErrorIs(t, err, ErrNotConnected)
}
