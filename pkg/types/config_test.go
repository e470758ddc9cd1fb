package types

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty data dir returns ErrDataDirEmpty",
			config:  Config{DataDir: ""},
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "nested media dir name rejected",
			config:  Config{DataDir: "/tmp/data", MediaDirName: "a/b"},
			wantErr: ErrMediaDirInvalid,
		},
		{
			name:    "parent media dir name rejected",
			config:  Config{DataDir: "/tmp/data", MediaDirName: ".."},
			wantErr: ErrMediaDirInvalid,
		},
		{
			name:   "valid config with default media dir",
			config: Config{DataDir: "/tmp/data"},
		},
		{
			name:   "valid config with custom media dir",
			config: Config{DataDir: "/tmp/data", MediaDirName: "blobs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigPaths(t *testing.T) {
	c := Config{DataDir: "/var/pf"}
	if got, want := c.DatabasePath(), filepath.Join("/var/pf", DatabaseFileName); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
	if got, want := c.MediaDir(), filepath.Join("/var/pf", "media"); got != want {
		t.Errorf("MediaDir() = %q, want %q", got, want)
	}
	c.MediaDirName = "blobs"
	if got, want := c.MediaDir(), filepath.Join("/var/pf", "blobs"); got != want {
		t.Errorf("MediaDir() = %q, want %q", got, want)
	}
}
