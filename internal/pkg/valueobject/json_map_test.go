package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Value(t *testing.T) {
	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	v, err = JSONMap{"error": "550 mailbox unavailable"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"550 mailbox unavailable"}`, string(v.([]byte)))
}

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    JSONMap
		wantErr bool
	}{
		{name: "nil", in: nil, want: JSONMap{}},
		{name: "bytes", in: []byte(`{"attempts":2}`), want: JSONMap{"attempts": float64(2)}},
		{name: "string", in: `{"provider":"smtp"}`, want: JSONMap{"provider": "smtp"}},
		{name: "decoded map", in: map[string]any{"a": "b"}, want: JSONMap{"a": "b"}},
		{name: "unsupported", in: 42, wantErr: true},
		{name: "bad json", in: []byte(`{`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j JSONMap
			err := j.Scan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, j)
		})
	}
}

func TestJSONMap_GetString(t *testing.T) {
	j := JSONMap{"provider": "smtp", "code": 250}

	assert.Equal(t, "smtp", j.GetString("provider"))
	assert.Empty(t, j.GetString("code"))
	assert.Empty(t, j.GetString("missing"))
}
