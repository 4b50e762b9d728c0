// Package segment implements the L1 binary framing: a segment data object
// is the concatenation of independently compressed frames, one per message,
// described by a parallel offset/length index. Independent compression is
// what allows any sub-range to be decompressed without the preceding
// frames.
package segment

import (
	"bytes"
	"fmt"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/canonical"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/codec"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
)

// EncodeFrame canonicalizes and compresses one record into a
// self-contained frame.
func EncodeFrame(rec *models.MessageRecord) ([]byte, error) {
	canonicalBytes, err := canonical.Encode(rec.CanonicalValue())
	if err != nil {
		return nil, fmt.Errorf("canonicalize record %s: %w", rec.MsgID, err)
	}
	return codec.Compress(canonicalBytes, codec.LevelBest), nil
}

// DecodeFrame is the inverse of EncodeFrame. Malformed input fails with
// codec.ErrCorrupt.
func DecodeFrame(frame []byte) (*models.MessageRecord, error) {
	data, err := codec.Decompress(frame)
	if err != nil {
		return nil, err
	}
	rec, err := models.DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCorrupt, err)
	}
	return rec, nil
}

// Build concatenates frames for the records in input order and returns the
// data bytes plus the index. Index offsets are the running byte offset
// before each frame; entries share ordinal order with the input.
func Build(records []*models.MessageRecord) ([]byte, []models.IndexEntry, error) {
	var data bytes.Buffer
	index := make([]models.IndexEntry, 0, len(records))

	var offset int64
	for _, rec := range records {
		frame, err := EncodeFrame(rec)
		if err != nil {
			return nil, nil, err
		}
		data.Write(frame)
		index = append(index, models.IndexEntry{
			MsgID:  rec.MsgID,
			Offset: offset,
			Length: len(frame),
		})
		offset += int64(len(frame))
	}
	return data.Bytes(), index, nil
}
