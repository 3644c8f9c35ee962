package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex(t *testing.T) {
	data, err := json.Marshal(Hex(0x401000))
	require.NoError(t, err)
	assert.Equal(t, `"0x401000"`, string(data))

	var h Hex
	require.NoError(t, json.Unmarshal([]byte(`"0X1F"`), &h))
	assert.Equal(t, Hex(0x1f), h)

	require.NoError(t, json.Unmarshal([]byte(`4096`), &h))
	assert.Equal(t, Hex(4096), h)

	assert.Error(t, json.Unmarshal([]byte(`"0xzz"`), &h))
	assert.Equal(t, "0x0", Hex(0).String())
}

func TestHexMapKey(t *testing.T) {
	in := map[Hex]int{0x10: 1, 0x8000: 2}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0x10": 1, "0x8000": 2}`, string(data))

	var out map[Hex]int
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
