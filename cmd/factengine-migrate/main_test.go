package main

import (
	"testing"

	"github.com/cuemby/factengine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreEmptyDirIsMemory(t *testing.T) {
	s, err := openStore("")
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*storage.MemoryStore)
	assert.True(t, ok)
}

func TestOpenStoreWithDirIsBolt(t *testing.T) {
	s, err := openStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*storage.BoltStore)
	assert.True(t, ok)
}
