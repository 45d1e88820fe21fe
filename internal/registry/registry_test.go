package registry

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmeld/tagmeld/internal/types"
)

// mockParser implements FormatParser for testing.
type mockParser struct {
	name string
}

func (m *mockParser) Parse(_ io.ReaderAt, _ int64, _ string) (*types.File, error) {
	return &types.File{Path: m.name}, nil
}

// mockWriter implements FormatWriter for testing.
type mockWriter struct {
	name string
}

func (m *mockWriter) Write(_ io.Writer, _ *types.File, _ io.ReaderAt, _ int64, _ int64) error {
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	// Use a format that's unlikely to conflict with real registrations
	format := types.Format(999)
	Register(format, &mockParser{name: "test"})

	got := Get(format)
	require.NotNil(t, got)
	mp, ok := got.(*mockParser)
	require.True(t, ok)
	assert.Equal(t, "test", mp.name)
}

func TestGetUnregistered(t *testing.T) {
	assert.Nil(t, Get(types.Format(998)))
	assert.Nil(t, GetWriter(types.Format(998)))
}

func TestRegisterOverwrites(t *testing.T) {
	format := types.Format(997)
	Register(format, &mockParser{name: "first"})
	Register(format, &mockParser{name: "second"})

	mp, ok := Get(format).(*mockParser)
	require.True(t, ok)
	assert.Equal(t, "second", mp.name)
}

func TestRegisterWriter(t *testing.T) {
	format := types.Format(996)
	assert.Nil(t, GetWriter(format))

	RegisterWriter(format, &mockWriter{name: "w"})
	mw, ok := GetWriter(format).(*mockWriter)
	require.True(t, ok)
	assert.Equal(t, "w", mw.name)
}
