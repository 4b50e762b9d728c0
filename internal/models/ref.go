package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reference tag prefixes. The textual encoding is an interop contract:
// "cas:<hex-sha256>" or "seg:<segmentId>:<offset>:<length>".
const (
	RefPrefixCAS = "cas:"
	RefPrefixSeg = "seg:"
)

// MessageRef is the persisted pointer row for one message. RefID is the
// only field ever mutated after creation, and only by compaction
// (cas:* -> seg:*, never the reverse).
type MessageRef struct {
	MsgID          string
	ConversationID string
	Seq            int64
	Role           string
	RefID          string
	Provider       string
	Model          string
	TokensIn       int64
	TokensOut      int64
	CostUSD        float64
	CreatedAt      time.Time
	Meta           string
}

// CASRef builds a cas:* reference from a hex SHA-256 hash.
func CASRef(hash string) string {
	return RefPrefixCAS + hash
}

// SegRef builds a seg:* reference for a byte range in a segment.
func SegRef(segmentID string, offset int64, length int) string {
	return fmt.Sprintf("%s%s:%d:%d", RefPrefixSeg, segmentID, offset, length)
}

// IsCASRef reports whether refID points at an L0 content-addressed object.
func IsCASRef(refID string) bool { return strings.HasPrefix(refID, RefPrefixCAS) }

// IsSegRef reports whether refID points at a byte range in an L1 segment.
func IsSegRef(refID string) bool { return strings.HasPrefix(refID, RefPrefixSeg) }

// CASHash extracts the hex hash from a cas:* reference.
func CASHash(refID string) (string, error) {
	if !IsCASRef(refID) {
		return "", fmt.Errorf("not a cas reference: %q", refID)
	}
	return refID[len(RefPrefixCAS):], nil
}

// ParseSegRef decodes a seg:* reference. The segment form is exactly four
// colon-delimited tokens.
func ParseSegRef(refID string) (segmentID string, offset int64, length int, err error) {
	parts := strings.Split(refID, ":")
	if len(parts) != 4 || parts[0]+":" != RefPrefixSeg {
		return "", 0, 0, fmt.Errorf("malformed seg reference: %q", refID)
	}
	offset, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed seg reference offset: %q", refID)
	}
	length, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed seg reference length: %q", refID)
	}
	if parts[1] == "" || offset < 0 || length <= 0 {
		return "", 0, 0, fmt.Errorf("malformed seg reference: %q", refID)
	}
	return parts[1], offset, length, nil
}

// IndexEntry describes the byte span of one compressed frame within a
// segment data object. Offsets are strictly increasing and non-overlapping.
type IndexEntry struct {
	MsgID  string `json:"msgId"`
	Offset int64  `json:"offset"`
	Length int    `json:"length"`
}

// StorageStats summarizes reference counts per storage tier.
type StorageStats struct {
	TotalMessages int64 `json:"totalMessages"`
	CASRefs       int64 `json:"casRefs"`
	SegRefs       int64 `json:"segRefs"`
}
