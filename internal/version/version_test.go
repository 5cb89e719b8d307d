package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setBuildVars(t *testing.T, version, tag, commit, dirty string) {
	t.Helper()
	oldVersion, oldTag, oldCommit, oldDirty := Version, GitTag, GitCommit, GitDirty
	Version, GitTag, GitCommit, GitDirty = version, tag, commit, dirty
	t.Cleanup(func() {
		Version, GitTag, GitCommit, GitDirty = oldVersion, oldTag, oldCommit, oldDirty
	})
}

func TestInfo(t *testing.T) {
	setBuildVars(t, "1.2.0", "", "unknown", "")
	assert.Equal(t, "1.2.0", Info())

	setBuildVars(t, "1.2.0", "v1.3.0", "unknown", "true")
	assert.Equal(t, "v1.3.0-dirty", Info())
}

func TestFull(t *testing.T) {
	setBuildVars(t, "dev", "", "abcdef1234567", "")
	assert.Equal(t, "dev (abcdef1)", Full())

	setBuildVars(t, "dev", "", "abc", "")
	assert.Equal(t, "dev (abc)", Full())

	setBuildVars(t, "dev", "", "unknown", "")
	assert.Equal(t, "dev", Full())
}

func TestUserAgent(t *testing.T) {
	setBuildVars(t, "0.4.1", "", "unknown", "")
	assert.Equal(t, "fintrack/0.4.1", UserAgent())
}
