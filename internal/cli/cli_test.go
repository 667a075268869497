package cli

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownSignalsNonEmpty(t *testing.T) {
	sigs := shutdownSignals()
	assert.NotEmpty(t, sigs)
}

func TestAcceptWithTimeoutReturnsConnWhenDialed(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "test.sock")

	listener, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := acceptWithTimeout(listener, 2*time.Second)
	require.NoError(t, err)
	conn.Close()
}

func TestAcceptWithTimeoutTimesOutWhenNobodyDials(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "test.sock")

	listener, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer listener.Close()

	_, err = acceptWithTimeout(listener, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestSaveAndGetInstallConfigRoundTrips(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()

	path, err := SaveInstallConfig("/etc/whisperd/.env", "/tmp/whisperd.sock")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".whisperd.yaml"), path)

	got := GetInstallConfig()
	assert.Equal(t, "/etc/whisperd/.env", got.EnvFile)
	assert.Equal(t, "/tmp/whisperd.sock", got.SocketPath)
}

func TestGetLogFilePathUnderTempDir(t *testing.T) {
	path := getLogFilePath()
	assert.Equal(t, filepath.Join(os.TempDir(), "whisperd-service.log"), path)
}
