package chunks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
)

// Merge writes every chunk file into outputPath strictly by ascending index,
// whatever order the chunks finished in.
func Merge(chunks []Chunk, outputPath string) (int64, error) {
	ordered := slices.Clone(chunks)
	slices.SortFunc(ordered, func(a, b Chunk) int { return a.Index - b.Index })

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("error creating output file %s: %w", outputPath, err)
	}
	defer out.Close()

	buffer := make([]byte, utils.DefaultBufferSize)
	var total int64
	for _, c := range ordered {
		n, err := appendFile(out, c.TempPath, buffer)
		if err != nil {
			return total, fmt.Errorf("error merging chunk %d: %w", c.Index, err)
		}
		total += n
	}
	if err := out.Sync(); err != nil {
		return total, fmt.Errorf("error flushing %s: %w", outputPath, err)
	}
	log.Debug().Str("op", "chunks/merge").Msgf("merged %d chunk(s) into %s (%s)", len(ordered), outputPath, utils.FormatBytes(uint64(total)))
	return total, nil
}

func appendFile(dst io.Writer, path string, buffer []byte) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.CopyBuffer(dst, f, buffer)
}

var dirLocks sync.Map

func lockFor(path string) *sync.Mutex {
	lock, _ := dirLocks.LoadOrStore(path, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// TempDir is the chunk directory of one download,
// "<parent>/.download_tmp/<output name>". Only downloads of the same output
// path share it and serialize on it; the shared ".download_tmp" parent is
// locked just while it is created or removed.
type TempDir struct {
	Path          string
	root          string
	keepOnFailure bool
	mu            *sync.Mutex
}

func AcquireTempDir(outputPath string, keepOnFailure bool) (*TempDir, error) {
	root := utils.TempDirFor(outputPath)
	path := filepath.Join(root, filepath.Base(outputPath))
	mu := lockFor(path)
	mu.Lock()

	rootMu := lockFor(root)
	rootMu.Lock()
	err := os.MkdirAll(path, 0755)
	rootMu.Unlock()
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("error creating temp directory: %w", err)
	}
	return &TempDir{Path: path, root: root, keepOnFailure: keepOnFailure, mu: mu}, nil
}

// Release removes the directory and its chunk files, and the shared parent
// once no other download uses it. After a failure the directory is left in
// place only when keepOnFailure was requested.
func (t *TempDir) Release(success bool) error {
	defer t.mu.Unlock()
	if !success && t.keepOnFailure {
		log.Warn().Str("op", "chunks/merge").Msgf("keeping partial chunks in %s", t.Path)
		return nil
	}
	rootMu := lockFor(t.root)
	rootMu.Lock()
	defer rootMu.Unlock()
	if err := os.RemoveAll(t.Path); err != nil {
		return fmt.Errorf("error removing temp directory %s: %w", t.Path, err)
	}
	// fails while sibling downloads still hold chunk dirs
	os.Remove(t.root)
	return nil
}
