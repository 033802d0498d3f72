package siteclient

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripJSONP(t *testing.T) {
	body := []byte(`cb_abc(  {"a":1}  );`)
	out, err := StripJSONP(body, "cb_abc")
	require.NoError(t, err)

	var v map[string]int
	require.NoError(t, json.NewDecoder(bytes.NewReader(out)).Decode(&v))
	assert.Equal(t, map[string]int{"a": 1}, v)
}

func TestStripJSONPTooShort(t *testing.T) {
	_, err := StripJSONP([]byte("x"), "much_longer_callback_name")
	assert.Error(t, err)
}
