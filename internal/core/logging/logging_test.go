package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf)
	require.NoError(t, err)

	log.Debug().Str("territory_code", "NA").Msg("matched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "NA", line["territory_code"])
	assert.Equal(t, "groundskeeper", line["service"])
	assert.Equal(t, "matched", line["message"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", "", &buf)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "text", &buf)
	require.NoError(t, err)

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json", nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}
