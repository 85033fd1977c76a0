package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilesystemOutput writes each http exchange into its own file under a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh run directory below `dir` so dumps from
// different runs do not overwrite each other.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir = filepath.Join(dir, time.Now().Format("20060102-150405"))
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create dump directory: %w", err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Directory() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
