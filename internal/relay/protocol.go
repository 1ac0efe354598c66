// Package relay shares one record between several cards over websockets.
// The server is the authority: clients send patches, the server applies
// them to its store and pushes the resulting snapshot to every client.
package relay

import (
	"encoding/json"
	"fmt"

	"chatroom/internal/record"
)

// FrameType identifies the frame payload.
type FrameType string

const (
	// FrameSnapshot carries the full record (server -> client).
	FrameSnapshot FrameType = "snapshot"
	// FramePatch carries fields to write (client -> server).
	FramePatch FrameType = "patch"
)

// Frame is the only message on the wire.
type Frame struct {
	Type   FrameType     `json:"type"`
	Origin string        `json:"origin,omitempty"`
	Fields record.Record `json:"fields"`
}

// EncodeFrame marshals a frame.
func EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame unmarshals and checks a frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Type {
	case FrameSnapshot, FramePatch:
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	if f.Fields == nil {
		f.Fields = record.Record{}
	}
	return f, nil
}
