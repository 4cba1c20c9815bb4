package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestManagePidFile_NewFile tests managePidFile with a new PID file
// TestManagePidFile_NewFile 测试 managePidFile 使用新的 PID 文件
func TestManagePidFile_NewFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "authguard.pid")

	require.NoError(t, managePidFile(pidPath))

	content, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(content)))

	removePidFile(pidPath, zap.NewNop().Sugar())
	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))
}

// TestManagePidFile_StalePID tests managePidFile with stale PID file
// TestManagePidFile_StalePID 测试 managePidFile 使用过期的 PID 文件
func TestManagePidFile_StalePID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "stale.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("99999999"), 0644))

	require.NoError(t, managePidFile(pidPath))

	content, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))
}

// TestManagePidFile_RunningProcess tests managePidFile when the PID is alive
// TestManagePidFile_RunningProcess 测试 PID 对应进程仍在运行的情况
func TestManagePidFile_RunningProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "running.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644))

	err := managePidFile(pidPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestManagePidFile_Garbage(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "garbage.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("not a pid"), 0644))
	assert.NoError(t, managePidFile(pidPath))
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}
