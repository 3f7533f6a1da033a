package apkchannel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarker(t *testing.T) {
	b, err := Marker{ChannelName: "app_store"}.MarshalBinary()
	assert.NoError(t, err)
	assert.Equal(t, `{"channelName":"app_store"}`, string(b))

	tests := []struct {
		name    string
		value   string
		want    Marker
		wantErr error
	}{
		{name: "valid", value: `{"channelName":"huawei"}`, want: Marker{ChannelName: "huawei"}},
		{name: "empty", value: ``},
		{name: "blank", value: " \n"},
		{name: "missing field", value: `{}`},
		{name: "null", value: `null`},
		{name: "unknown fields are ignored", value: `{"channelName":"a","extra":1}`, want: Marker{ChannelName: "a"}},
		{name: "not json", value: `huawei`, wantErr: ErrInvalidMarker},
		{name: "wrong type", value: `{"channelName":1}`, wantErr: ErrInvalidMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := UnmarshalMarker([]byte(tt.value))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, m)
		})
	}
}
