package connector

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceArchiveName(t *testing.T) {
	assert.Equal(t, "crm-connector-1.4.0-sources.tar.gz", SourceArchiveName("crm-connector", "1.4.0"))
}

func TestInstance_SourceArchive(t *testing.T) {
	props := NewProperties(map[string]string{
		PropertyBuildVersion:  "1.4.0",
		PropertyBuildArtifact: "crm-connector",
	})
	fsys := fstest.MapFS{
		"crm-connector-1.4.0-sources.tar.gz": &fstest.MapFile{Data: []byte("tarball")},
	}
	inst, err := New("crm", "CRM", props, newFakeWorker(&recorder{}), WithSourceFS(fsys, true))
	require.NoError(t, err)

	assert.True(t, inst.SourceAvailable())
	a := inst.SourceArchive(context.Background())
	assert.Equal(t, "crm-connector-1.4.0-sources.tar.gz", a.FileName)
	assert.Equal(t, []byte("tarball"), a.Data)
	assert.True(t, a.UsesAGPL)
	assert.True(t, a.Available())
}

func TestInstance_SourceArchiveFailuresYieldEmptyData(t *testing.T) {
	inst, err := New("crm", "CRM", NewProperties(nil), newFakeWorker(&recorder{}), WithSourceFS(fstest.MapFS{}, false))
	require.NoError(t, err)

	a := inst.SourceArchive(context.Background())
	assert.Equal(t, "unknown-unknown-sources.tar.gz", a.FileName)
	assert.False(t, a.Available())

	noFS, err := New("crm", "CRM", NewProperties(nil), newFakeWorker(&recorder{}))
	require.NoError(t, err)
	assert.False(t, noFS.SourceAvailable())
	assert.Empty(t, noFS.SourceArchive(context.Background()).Data)
}
