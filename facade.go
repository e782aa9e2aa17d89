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

	"github.com/tominsam/godaap/internal/dmap"
)

// Database is a thin, lazy wrapper around one dmap.listingitem from
// /databases: the facade classes hold only their backing atom and fetch
// children on demand, per §4.3's note that find-atom is the only accessor
// the facade layer uses.
type Database struct {
	session *Session
	atom    *dmap.Atom
}

func newDatabase(s *Session, atom *dmap.Atom) *Database {
	return &Database{session: s, atom: atom}
}

// ID is the database's dmap.itemid.
func (d *Database) ID() int64 {
	return atomInt(d.atom, "dmap.itemid")
}

// Name is the database's dmap.itemname.
func (d *Database) Name() string {
	return atomString(d.atom, "dmap.itemname")
}

// Tracks lists every track in the database (§4.5's Database.tracks).
func (d *Database) Tracks() ([]*Track, error) {
	return d.TracksWithContext(context.Background())
}

func (d *Database) TracksWithContext(ctx context.Context) ([]*Track, error) {
	params := map[string]string{"meta": trackMeta}
	atoms, err := d.session.request(ctx, pathDatabaseItems(d.ID()), params, "DATABASE TRACKS")
	if err != nil {
		return nil, err
	}
	return tracksFromAtoms(d, atoms), nil
}

// Playlists lists the playlists (dmap.listingitem children of
// /databases/{id}/containers) in the database. Supplements §4.5, which
// names /databases/{id}/containers in the interfaces table but does not
// spell out a Database.Playlists accessor.
func (d *Database) Playlists() ([]*Playlist, error) {
	return d.PlaylistsWithContext(context.Background())
}

func (d *Database) PlaylistsWithContext(ctx context.Context) ([]*Playlist, error) {
	atoms, err := d.session.request(ctx, pathDatabaseContainers(d.ID()), nil, "DATABASE PLAYLISTS")
	if err != nil {
		return nil, err
	}
	items := listingItems(atoms)
	pls := make([]*Playlist, 0, len(items))
	for _, it := range items {
		pls = append(pls, newPlaylist(d, it))
	}
	return pls, nil
}

// Playlist is a named, ordered subset of a Database's tracks.
type Playlist struct {
	db   *Database
	atom *dmap.Atom
}

func newPlaylist(db *Database, atom *dmap.Atom) *Playlist {
	return &Playlist{db: db, atom: atom}
}

// ID is the playlist's dmap.itemid.
func (p *Playlist) ID() int64 {
	return atomInt(p.atom, "dmap.itemid")
}

// Name is the playlist's dmap.itemname.
func (p *Playlist) Name() string {
	return atomString(p.atom, "dmap.itemname")
}

// Count is the playlist's dmap.itemcount: the number of tracks it holds,
// per the same /databases/{id}/containers response this struct is already
// built from (§3's attribute set; no extra request or meta param needed).
func (p *Playlist) Count() int64 {
	return atomInt(p.atom, "dmap.itemcount")
}

// Tracks lists the tracks in the playlist (§4.5's Playlist.tracks).
func (p *Playlist) Tracks() ([]*Track, error) {
	return p.TracksWithContext(context.Background())
}

func (p *Playlist) TracksWithContext(ctx context.Context) ([]*Track, error) {
	params := map[string]string{"meta": trackMeta}
	path := pathPlaylistItems(p.db.ID(), p.ID())
	atoms, err := p.db.session.request(ctx, path, params, "PLAYLIST TRACKS")
	if err != nil {
		return nil, err
	}
	return tracksFromAtoms(p.db, atoms), nil
}

// Track is one song's metadata, plus a handle to stream its media.
type Track struct {
	db   *Database
	atom *dmap.Atom
}

func tracksFromAtoms(db *Database, atoms []*dmap.Atom) []*Track {
	items := listingItems(atoms)
	tracks := make([]*Track, 0, len(items))
	for _, it := range items {
		tracks = append(tracks, &Track{db: db, atom: it})
	}
	return tracks
}

// ID is the track's dmap.itemid, the identifier used in the media-fetch
// URL.
func (t *Track) ID() int64 {
	return atomInt(t.atom, "dmap.itemid")
}

// Name is the track's dmap.itemname.
func (t *Track) Name() string {
	return atomString(t.atom, "dmap.itemname")
}

// Album is the track's daap.songalbum.
func (t *Track) Album() string {
	return atomString(t.atom, "daap.songalbum")
}

// Artist is the track's daap.songartist.
func (t *Track) Artist() string {
	return atomString(t.atom, "daap.songartist")
}

// Duration is the track's daap.songtime, in milliseconds.
func (t *Track) Duration() int64 {
	return atomInt(t.atom, "daap.songtime")
}

// Size is the track's daap.songsize in bytes (§3's attribute set). trackMeta
// doesn't request daap.songsize by default, so this reads as zero unless a
// caller issues its own request with a meta param that includes it.
func (t *Track) Size() int64 {
	return atomInt(t.atom, "daap.songsize")
}

// Format is the file-extension suffix used to build the media-fetch URL:
// the track's daap.songformat if the server sent one, otherwise "mp3".
// Supplements §4.6, which requires a {format} path segment but leaves
// where it comes from to the implementation.
func (t *Track) Format() string {
	if f := atomString(t.atom, "daap.songformat"); f != "" {
		return f
	}
	return "mp3"
}

func atomInt(root *dmap.Atom, name string) int64 {
	a := dmap.FindAtom(root.Children, name)
	if a == nil {
		return 0
	}
	v, _ := a.Int()
	return v
}

func atomString(root *dmap.Atom, name string) string {
	a := dmap.FindAtom(root.Children, name)
	if a == nil {
		return ""
	}
	v, _ := a.String()
	return v
}
