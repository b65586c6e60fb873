package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkdir/parkdir/internal/config"
	"github.com/parkdir/parkdir/internal/favourites"
	"github.com/parkdir/parkdir/internal/session"
)

func TestReportJoinError(t *testing.T) {
	var rep reported

	err := reportJoinError(&session.VersionError{Address: "203.0.113.5:11753", Remote: "0.8.0", Local: "1.0.0"})
	assert.True(t, errors.As(err, &rep))
	assert.ErrorIs(t, err, session.ErrIncompatibleVersion)

	err = reportJoinError(fmt.Errorf("%w: %w", session.ErrUnableToConnect, errors.New("refused")))
	assert.True(t, errors.As(err, &rep))

	plain := errors.New("boom")
	assert.Equal(t, plain, reportJoinError(plain))
}

func TestOpenStoreDefaultsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	cfg = &config.Config{FavouritesFile: path}
	t.Cleanup(func() { cfg = nil })

	store, release, err := openStore(testContext(t))
	require.NoError(t, err)
	defer release()

	fs, ok := store.(*favourites.FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

// testContext stands in for testing.T.Context (Go 1.24+).
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
