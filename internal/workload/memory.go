package workload

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChunkSize is the size of one allocated buffer.
const ChunkSize = 1 << 20

// AllocationResult summarises a memory churn run.
type AllocationResult struct {
	RequestedMB   int
	ChunksCreated int
	Duration      time.Duration
}

// AllocateMemory allocates sizeMb random-filled 1 MiB buffers and drops them
// before returning, producing a transient spike rather than a sustained footprint.
func AllocateMemory(sizeMb int) (AllocationResult, error) {
	start := time.Now()

	chunks := make([][]byte, 0, max(sizeMb, 0))
	for i := 0; i < sizeMb; i++ {
		chunk := make([]byte, ChunkSize)
		if _, err := rand.Read(chunk); err != nil {
			return AllocationResult{}, fmt.Errorf("fill chunk %d: %w", i, err)
		}
		chunks = append(chunks, chunk)
	}

	created := len(chunks)
	duration := time.Since(start)

	runtime.KeepAlive(chunks)

	return AllocationResult{
		RequestedMB:   sizeMb,
		ChunksCreated: created,
		Duration:      duration,
	}, nil
}

// CollectionResult summarises a large-collection churn run.
type CollectionResult struct {
	ItemsProcessed int
	MatchedItems   int
	Duration       time.Duration
}

// ProcessCollection builds itemCount key/value pairs, counts the values
// containing a hyphen (all of them, by construction) and discards the map.
func ProcessCollection(itemCount int) CollectionResult {
	start := time.Now()

	items := make(map[string]string, max(itemCount, 0))
	for i := 0; i < itemCount; i++ {
		items["key-"+strconv.Itoa(i)] = "value-" + uuid.NewString()
	}

	matched := 0
	for _, v := range items {
		if strings.Contains(v, "-") {
			matched++
		}
	}

	duration := time.Since(start)
	clear(items)

	return CollectionResult{
		ItemsProcessed: itemCount,
		MatchedItems:   matched,
		Duration:       duration,
	}
}
