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
	"io"
	"strconv"

	"github.com/tominsam/godaap/objlog"
)

// recommendedChunkSize is the read-buffer size §4.6 recommends for media
// stream consumers.
const recommendedChunkSize = 32 * 1024

// Open increments the owning Client's request id, then issues a
// gzip-disabled GET for the track's media. The returned ReadCloser is a
// single-pass stream straight from the HTTP response body; its lifetime
// is independent of any later request the Client makes, since the request
// counter has already moved on by the time Open returns (§4.6).
func (t *Track) Open() (io.ReadCloser, error) {
	return t.OpenWithContext(context.Background())
}

func (t *Track) OpenWithContext(ctx context.Context) (io.ReadCloser, error) {
	t.db.session.mtx.Lock()
	closed := t.db.session.state == SessionClosed
	t.db.session.mtx.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	transport := t.db.session.transport
	transport.IncrementRequestID()

	params := map[string]string{"session-id": strconv.FormatInt(t.db.session.sessionID, 10)}
	path := pathTrackMedia(t.db.ID(), t.ID(), t.Format())
	id := objlog.NewRequestID()
	body, err := transport.StreamWithContext(ctx, path, params)
	if err != nil {
		t.db.session.client.objLog.Log(id, "OPEN "+path+" error: "+err.Error(), nil)
		return nil, err
	}
	t.db.session.client.objLog.Log(id, "OPEN "+path, nil)
	return body, nil
}

// RecommendedChunkSize is exported so callers don't need to duplicate the
// 32 KiB constant §4.6 recommends for reading Track.Open's stream.
const RecommendedChunkSize = recommendedChunkSize
