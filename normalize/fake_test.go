package normalize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeTool treats a video as a text file "frames=N fps=R".
type fakeTool struct {
	// trims of these names fail outright
	failTrim map[string]bool
	// trims of these names produce one frame too few
	shortTrim map[string]bool
	probes    int
	trims     int
}

func (f *fakeTool) Probe(ctx context.Context, fname string) (VideoInfo, error) {
	f.probes++
	data, err := os.ReadFile(fname)
	if err != nil {
		return VideoInfo{}, err
	}
	var frames, fps int
	if _, err := fmt.Sscanf(string(data), "frames=%d fps=%d", &frames, &fps); err != nil {
		return VideoInfo{}, fmt.Errorf("cannot parse %s: %v", fname, err)
	}
	return VideoInfo{Framerate: [2]int{fps, 1}, Frames: frames}, nil
}

func (f *fakeTool) Trim(ctx context.Context, src string, dst string, frames int) error {
	f.trims++
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(src)
	if f.failTrim[name] {
		return fmt.Errorf("encoder crashed")
	}
	if f.shortTrim[name] {
		frames--
	}
	return os.WriteFile(dst, []byte(fmt.Sprintf("frames=%d fps=30", frames)), 0644)
}

func writeVideo(t testing.TB, dir string, name string, frames int, fps int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(fmt.Sprintf("frames=%d fps=%d", frames, fps)), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
