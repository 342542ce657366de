package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
type Paths struct {
	BaseDir         string
	DataDir         string
	LogsDir         string
	HistoryFile     string
	ReportCacheFile string
	LogFile         string
}

// GetPaths resolves the configured paths. Relative directories are anchored
// at BaseDir, or at the executable directory when BaseDir is empty.
func (c *Config) GetPaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}

	dataDir := resolve(base, c.Paths.DataDir)
	logsDir := resolve(base, c.Paths.LogsDir)

	return &Paths{
		BaseDir:         base,
		DataDir:         dataDir,
		LogsDir:         logsDir,
		HistoryFile:     resolve(dataDir, c.History.FileName),
		ReportCacheFile: filepath.Join(dataDir, ReportCacheFileName),
		LogFile:         resolve(logsDir, c.Logging.FilePath),
	}, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs the resolved paths
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution summary",
		slog.String("base", p.BaseDir),
		slog.String("data", p.DataDir),
		slog.String("logs", p.LogsDir),
		slog.String("history_file", p.HistoryFile),
		slog.String("report_cache", p.ReportCacheFile),
	)
}
