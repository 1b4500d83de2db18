package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-owner", "a1b2c3d4", "-name", "North pier", "-location", "North beach"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", opts.owner)
	assert.Equal(t, "North pier", opts.name)
	assert.Equal(t, "🌊", opts.emoji)
	require.NotNil(t, opts.location)
	assert.Equal(t, "North beach", *opts.location)

	opts, err = parseArgs([]string{"-owner", "a1b2c3d4", "-name", "Pool", "-emoji", "🏊"}, io.Discard)
	require.NoError(t, err)
	assert.Nil(t, opts.location)
	assert.Equal(t, "🏊", opts.emoji)

	_, err = parseArgs([]string{"-name", "Pool"}, io.Discard)
	assert.ErrorContains(t, err, "required")

	_, err = parseArgs([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}
