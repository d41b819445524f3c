package chunks

import (
	"fmt"
	"path/filepath"

	"github.com/tanq16/mediafetch/internal/utils"
)

type Chunk struct {
	Index    int
	Start    int64
	End      int64 // inclusive
	TempPath string
}

func (c Chunk) Len() int64 {
	return c.End - c.Start + 1
}

func (c Chunk) Range() utils.ByteRange {
	return utils.ByteRange{Start: c.Start, End: c.End}
}

// Count is ceil(total / chunkSize).
func Count(total, chunkSize int64) int {
	if total <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((total + chunkSize - 1) / chunkSize)
}

func ChunkPath(tempDir string, index int) string {
	return filepath.Join(tempDir, fmt.Sprintf("chunk_%d", index))
}

// Plan splits [0, total) into contiguous fixed-size ranges; only the last
// one may be shorter.
func Plan(total, chunkSize int64, tempDir string) ([]Chunk, error) {
	if total <= 0 {
		return nil, fmt.Errorf("cannot plan chunks for size %d", total)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	count := Count(total, chunkSize)
	chunks := make([]Chunk, 0, count)
	for i := range count {
		start := int64(i) * chunkSize
		end := min(start+chunkSize-1, total-1)
		chunks = append(chunks, Chunk{
			Index:    i,
			Start:    start,
			End:      end,
			TempPath: ChunkPath(tempDir, i),
		})
	}
	return chunks, nil
}
