package types

import (
	"errors"
	"path/filepath"
)

// DefaultMediaDirName is the media directory created beside the store file.
const DefaultMediaDirName = "media"

// DatabaseFileName is the store file inside DataDir.
const DatabaseFileName = "processflow.db"

// Config locates the store on disk.
type Config struct {
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	MediaDirName string `json:"media_dir_name" yaml:"media_dir_name"`
}

// Config validation errors.
var (
	ErrDataDirEmpty    = errors.New("data directory must not be empty")
	ErrMediaDirInvalid = errors.New("media directory name must be a single path element")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.MediaDirName != "" && (c.MediaDirName != filepath.Base(c.MediaDirName) || c.MediaDirName == "..") {
		return ErrMediaDirInvalid
	}
	return nil
}

// DatabasePath returns the store file path.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFileName)
}

// MediaDir returns the media directory path.
func (c Config) MediaDir() string {
	name := c.MediaDirName
	if name == "" {
		name = DefaultMediaDirName
	}
	return filepath.Join(c.DataDir, name)
}
