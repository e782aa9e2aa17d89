package hashv

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// HashV2 computes the Client-DAAP-Validation header value used by old
// iTunes servers (apro major version 2). It is a pure function of its
// inputs: MD5(url || the fixed Apple copyright string || seedV2[select]).
func HashV2(url string, select_ int) string {
	h := md5.New()
	h.Write([]byte(url))
	h.Write([]byte(copyrightString))
	h.Write([]byte(seedV2[select_]))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// HashV3 computes the Client-DAAP-Validation header value for modern
// servers, using the libopendaap MD5 variant and folding in the decimal
// ASCII request sequence number when sequence > 0.
func HashV3(url string, select_ int, sequence int) string {
	d := newDaapDigest()
	d.Write([]byte(url))
	d.Write([]byte(copyrightString))
	d.Write([]byte(seedV3[select_]))
	if sequence > 0 {
		d.Write([]byte(strconv.Itoa(sequence)))
	}
	sum := d.sum()
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Select is the fixed select index used by every request this client
// issues; the parameter is kept on HashV2/HashV3 for protocol completeness
// (see spec Open Question: no known DAAP server requires another value).
const Select = 2
