package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validYAML = `
storage:
  postgres_dsn: "host=localhost dbname=phototier"
  s3_bucket: "photos"
import:
  folder: "data/import"
  archive_folder: "data/archive"
  duplicate_check: true
  auto_archive: true
export:
  folder: "data/export"
  filename_template: "img_%s.png"
sync:
  policy: "tier_off"
  interval: "30m"
  max_concurrent: 5
system:
  log_level: "debug"
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "photos", cfg.Storage.S3Bucket)
	assert.Equal(t, "data/import", cfg.Import.Folder)
	assert.True(t, cfg.Import.DuplicateCheck)
	assert.Equal(t, "img_%s.png", cfg.Export.FilenameTemplate)
	assert.Equal(t, "tier_off", cfg.Sync.Policy)
	assert.Equal(t, 30*time.Minute, cfg.Sync.IntervalDuration)
	assert.Equal(t, 5, cfg.Sync.MaxConcurrent)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "import:\n  folder: x\n"))
	require.NoError(t, err)

	assert.Contains(t, cfg.Import.Extensions, "jpg")
	assert.Contains(t, cfg.Import.Extensions, "png")
	assert.Equal(t, "photo_%s.jpg", cfg.Export.FilenameTemplate)
	assert.Equal(t, "keep_local", cfg.Sync.Policy)
	assert.Equal(t, 15*time.Minute, cfg.Sync.IntervalDuration)
	assert.Equal(t, 3, cfg.Sync.MaxConcurrent)
	assert.Equal(t, "data/fingerprints.db", cfg.System.IndexPath)
}

func TestLoadUnknownPolicy(t *testing.T) {
	_, err := Load(writeConfig(t, "sync:\n  policy: replicate_everywhere\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sync policy")
}

func TestLoadBadInterval(t *testing.T) {
	_, err := Load(writeConfig(t, "sync:\n  interval: soonish\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sync interval")
}

func TestLoadBadTemplate(t *testing.T) {
	for _, tmpl := range []string{"photo.jpg", "photo_%s_%s.jpg", "photo_%d.jpg"} {
		_, err := Load(writeConfig(t, "export:\n  filename_template: \""+tmpl+"\"\n"))
		require.Error(t, err, "template %q", tmpl)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "host=db.internal dbname=prod")
	t.Setenv("S3_BUCKET", "prod-photos")
	t.Setenv("ACCESS_KEY_ID", "AKID")
	t.Setenv("ACCESS_KEY_SECRET", "SECRET")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "host=db.internal dbname=prod", cfg.Storage.PostgresDSN)
	assert.Equal(t, "prod-photos", cfg.Storage.S3Bucket)
	assert.Equal(t, "AKID", cfg.Storage.S3AccessKeyID)
	assert.Equal(t, "SECRET", cfg.Storage.S3AccessKeySecret)
}
