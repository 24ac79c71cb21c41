package recon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end pass chain: import a drop folder, sync to the blob tier,
// export everything, and hold the state invariant throughout.
func TestImportSyncExportScenario(t *testing.T) {
	importDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")
	exportDir := filepath.Join(t.TempDir(), "export")
	writeFile(t, importDir, "one.jpg", []byte("payload-one"))
	writeFile(t, importDir, "two.jpg", []byte("payload-two"))
	writeFile(t, importDir, "three.jpg", []byte("payload-three"))

	records := newMemStore()
	blobs := newMemBlob()
	engine := newTestEngine(records, blobs, openTestIndex(t))
	ctx := context.Background()

	imp, err := engine.Import(ctx, ImportOptions{
		Folder:         importDir,
		ArchiveFolder:  archiveDir,
		Extensions:     jpgExts,
		DuplicateCheck: true,
		AutoArchive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, imp.Found)
	assert.Equal(t, 3, imp.Imported)
	assert.Equal(t, 0, imp.SkippedDuplicates)
	assert.Equal(t, 0, imp.Failed)

	syn, err := engine.CloudSync(ctx, SyncOptions{Policy: PolicyKeepLocal})
	require.NoError(t, err)
	assert.Equal(t, 3, syn.Uploaded)
	assert.Equal(t, 0, syn.Failed)

	exp, err := engine.Export(ctx, ExportOptions{
		Folder:           exportDir,
		FilenameTemplate: "photo_%s.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, exp.Due, "freshly imported records are export-due")
	assert.Equal(t, 3, exp.Exported)
	assert.Equal(t, 0, exp.Failed)

	exported, err := os.ReadDir(exportDir)
	require.NoError(t, err)
	assert.Len(t, exported, 3)

	// State invariant: nothing ends up inconsistent after any pass.
	all, err := records.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := range all {
		assert.NotEqual(t, StateInconsistent, Classify(&all[i]), "record %s", all[i].Code)
		assert.Equal(t, StateMirrored, Classify(&all[i]))
	}

	ver, err := engine.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ver.Inconsistent)
	assert.Equal(t, 0, ver.MissingBlobs)
}
