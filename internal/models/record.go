package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ParseRole validates and returns a Role from its wire form.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// MessageRecord is the logical message as written and read back.
// Immutable once written; the canonical encoding of this value is the
// content-address hash input.
type MessageRecord struct {
	MsgID          string         `json:"msgId"`
	ConversationID string         `json:"conversationId"`
	Seq            int64          `json:"seq"`
	Role           string         `json:"role"`
	Body           any            `json:"body"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// CanonicalValue returns the record as a plain JSON value suitable for
// canonical encoding. Empty meta is omitted entirely, matching the
// null-members-omitted rule.
func (r *MessageRecord) CanonicalValue() map[string]any {
	v := map[string]any{
		"msgId":          r.MsgID,
		"conversationId": r.ConversationID,
		"seq":            r.Seq,
		"role":           r.Role,
		"body":           r.Body,
		"createdAt":      r.CreatedAt,
	}
	if len(r.Meta) > 0 {
		v["meta"] = r.Meta
	}
	return v
}

// DecodeRecord parses a canonical JSON record. Numbers inside the body are
// kept as json.Number so re-encoding stays byte-stable.
func DecodeRecord(data []byte) (*MessageRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec := &MessageRecord{}
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
