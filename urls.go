/*************************************************************************
 * Copyright 2021 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package daap

import "fmt"

// Fixed request paths, per the external-interfaces table (§6).
const (
	pathContentCodes = "/content-codes"
	pathServerInfo   = "/server-info"
	pathLogin        = "/login"
	pathLogout       = "/logout"
	pathUpdate       = "/update"
	pathDatabases    = "/databases"
)

func pathDatabaseItems(dbID int64) string {
	return fmt.Sprintf("/databases/%d/items", dbID)
}

func pathDatabaseContainers(dbID int64) string {
	return fmt.Sprintf("/databases/%d/containers", dbID)
}

func pathPlaylistItems(dbID, playlistID int64) string {
	return fmt.Sprintf("/databases/%d/containers/%d/items", dbID, playlistID)
}

func pathTrackMedia(dbID, trackID int64, format string) string {
	return fmt.Sprintf("/databases/%d/items/%d.%s", dbID, trackID, format)
}

// trackMeta lists the fields the client asks the server to include on
// every track listing (§4.5).
const trackMeta = "dmap.itemid,dmap.itemname,daap.songalbum,daap.songartist,daap.songformat,daap.songtime"
