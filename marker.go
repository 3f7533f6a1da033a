package apkchannel

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marker is the content of the channel pair.
//
// It is encoded as a JSON object so that more fields can be added without breaking readers.
type Marker struct {
	ChannelName string `json:"channelName"`
}

// MarshalBinary returns the JSON encoding of the marker as stored in the signing block.
func (m Marker) MarshalBinary() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMarker decodes the value of a channel pair.
//
// An empty value decodes to the zero Marker. Returns ErrInvalidMarker if the value is not a JSON object.
func UnmarshalMarker(b []byte) (m Marker, err error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return m, nil
	}

	if err = json.Unmarshal(b, &m); err != nil {
		return Marker{}, fmt.Errorf("%w: %w", ErrInvalidMarker, err)
	}

	return m, nil
}

func (m Marker) String() string {
	return fmt.Sprintf("Marker{channelName=%q}", m.ChannelName)
}
