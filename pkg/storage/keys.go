package storage

import (
	"encoding/binary"
	"fmt"
)

// Key schema for the history store:
//
//   fill:{timestamp_in_us}:{seq} → filled order (JSON)
//   fid:{client_order_id}       → fill key of the latest fill under that id
//   fseq                        → last assigned sequence number
//
// Timestamp and sequence are zero-padded (20 digits) for lexicographic
// ordering, so a forward scan of "fill:" is chronological.
const (
	prefixFill = "fill:"
	prefixFID  = "fid:"
	keySeq     = "fseq"
)

func fillKey(timestampInUs int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d", prefixFill, timestampInUs, seq))
}

func fillIDKey(clientOrderID string) []byte {
	return []byte(prefixFID + clientOrderID)
}

func encodeSeq(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return b[:]
}

func decodeSeq(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
