package sqlutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedHistory_SparseKeysSurvive(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	in := map[int][]time.Time{0: {ts}, 3: {ts, ts.Add(time.Minute)}}

	data, err := EncodeIndexed(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":["2025-03-14T09:00:00Z"],"3":["2025-03-14T09:00:00Z","2025-03-14T09:01:00Z"]}`, string(data))

	out, err := DecodeIndexed[[]time.Time](data)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	_, present := out[1]
	assert.False(t, present)
	assert.Len(t, out[3], 2)
}

func TestDecodeIndexed_EmptyAndNull(t *testing.T) {
	for _, in := range []string{"", "null", "{}"} {
		out, err := DecodeIndexed[int]([]byte(in))
		require.NoError(t, err)
		assert.Empty(t, out)
	}
}

func TestDecodeIndexed_RejectsBadKey(t *testing.T) {
	_, err := DecodeIndexed[int]([]byte(`{"x":1}`))
	assert.Error(t, err)

	_, err = DecodeIndexed[int]([]byte(`{"-1":1}`))
	assert.Error(t, err)
}

func TestNullMillis(t *testing.T) {
	assert.Nil(t, FromNullMillis(ToNullMillis(nil)))

	d := 61500 * time.Millisecond
	got := FromNullMillis(ToNullMillis(&d))
	require.NotNil(t, got)
	assert.Equal(t, d, *got)
}
