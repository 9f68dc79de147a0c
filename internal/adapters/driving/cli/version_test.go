package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := runCmd(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "fintweet version test-version-1.0.0")
}

func TestVersionCmd_SkipsServiceWiring(t *testing.T) {
	defer resetServices()
	resetServices()

	_, err := runCmd(t, "version")

	assert.NoError(t, err)
	assert.Nil(t, settingsService)
}
