// Package objectkey builds blob-store object keys. The formats are an
// interop contract shared with other readers of the bucket and must not
// change.
package objectkey

import "fmt"

const (
	casKeyFormat      = "%s/cas/sha256/%s/%s.json.zst"
	segDataKeyFormat  = "%s/seg/%s/%s/%s/seg-%s.jsonl.zst"
	segIndexKeyFormat = "%s/seg/%s/%s/%s/seg-%s.idx.%s"
	rangeFormat       = "bytes=%d-%d"
)

// Content types stored alongside objects.
const (
	ContentTypeZstd = "application/zstd"
	ContentTypeJSON = "application/json"
)

// CAS returns the key of an L0 object, sharded by the first byte pair of
// the hash to bound directory fan-out.
func CAS(prefix, hash string) string {
	return fmt.Sprintf(casKeyFormat, prefix, hash[:2], hash)
}

// SegData returns the key of a segment data object.
func SegData(prefix, tenant, period, conversationID, segmentID string) string {
	return fmt.Sprintf(segDataKeyFormat, prefix, tenant, period, conversationID, segmentID)
}

// SegIndex returns the key of a segment index object.
func SegIndex(prefix, tenant, period, conversationID, segmentID string, parquet bool) string {
	ext := "json"
	if parquet {
		ext = "parquet"
	}
	return fmt.Sprintf(segIndexKeyFormat, prefix, tenant, period, conversationID, segmentID, ext)
}

// RangeHeader formats an inclusive byte-range header value.
func RangeHeader(startInclusive, endInclusive int64) string {
	return fmt.Sprintf(rangeFormat, startInclusive, endInclusive)
}
