package application

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// AppName is the application name used for directories and identification
	AppName = "slack-mcp"

	// AppVersion is reported to MCP clients and by --version
	AppVersion = "1.0.0"

	// DirEnvVar overrides the configuration directory
	DirEnvVar = "SLACK_MCP_DIR"
)

var (
	once   sync.Once
	appDir string
	errDir error
)

// GetApplicationDirectory returns the slack-mcp configuration directory path.
// Linux: ~/.config/slack-mcp (via os.UserConfigDir)
// Windows: C:\Users\{username}\AppData\Local\slack-mcp (via os.UserCacheDir)
// SLACK_MCP_DIR takes precedence when set.
func GetApplicationDirectory() (string, error) {
	once.Do(lazyLoad)

	if errDir != nil {
		return "", errDir
	}

	return appDir, nil
}

func lazyLoad() {
	if dir := os.Getenv(DirEnvVar); dir != "" {
		appDir = dir
		return
	}

	var (
		baseDir string
		err     error
	)

	switch runtime.GOOS {
	case "windows":
		// Windows: use AppData\Local (via UserCacheDir)
		baseDir, err = os.UserCacheDir()
	default:
		// Linux/others: use ~/.config (via UserConfigDir)
		baseDir, err = os.UserConfigDir()
	}

	if err != nil {
		errDir = fmt.Errorf("failed to get config directory: %w", err)
		return
	}

	appDir = filepath.Join(baseDir, AppName)
}
