package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirWritable returns a check that verifies the directory exists and accepts
// writes by creating and removing a probe file. The cache and data
// directories must stay writable for synthesis and assignment persistence to
// work.
func DirWritable(dir string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		probe := filepath.Join(dir, ".health-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return fmt.Errorf("write probe: %w", err)
		}
		return os.Remove(probe)
	}
}

// Pinger is the subset of a dependency that supports a cheap liveness probe.
// The assignment store's Postgres backend implements it via its pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping returns a check that forwards to p.Ping.
func Ping(p Pinger) func(ctx context.Context) error {
	return p.Ping
}
