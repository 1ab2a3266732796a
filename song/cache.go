package song

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"pianolight/timeline"
)

// cacheVersion bumps whenever the timeline layout changes so stale
// records from older builds are treated as misses.
const cacheVersion = 1

type cacheRecord struct {
	Version       int
	SourcePath    string
	SourceModTime time.Time
	Timeline      timeline.Timeline
}

// cacheDir can be overridden in tests.
var cacheDir = func() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "pianolight", "cache")
}

func cachePath(sourcePath string) string {
	h := fnv.New32a()
	h.Write([]byte(sourcePath))
	name := fmt.Sprintf("%s-%08x.gob", filepath.Base(sourcePath), h.Sum32())
	return filepath.Join(cacheDir(), name)
}

// cacheLoad returns the cached timeline for sourcePath, or ok=false
// on any miss: no cache file, version mismatch, source modified since
// the record was written, or a corrupt record.
func cacheLoad(sourcePath string) (*timeline.Timeline, bool) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, false
	}

	f, err := os.Open(cachePath(sourcePath))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var rec cacheRecord
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, false
	}

	if rec.Version != cacheVersion || rec.SourcePath != sourcePath {
		return nil, false
	}
	if !rec.SourceModTime.Equal(info.ModTime()) {
		return nil, false
	}

	return &rec.Timeline, true
}

// cacheStore writes the timeline for sourcePath. Failures are
// non-fatal; the caller logs and continues.
func cacheStore(sourcePath string, tl *timeline.Timeline) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cacheDir(), 0755); err != nil {
		return err
	}

	rec := cacheRecord{
		Version:       cacheVersion,
		SourcePath:    sourcePath,
		SourceModTime: info.ModTime(),
		Timeline:      *tl,
	}

	tmp := cachePath(sourcePath) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(&rec); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, cachePath(sourcePath))
}
