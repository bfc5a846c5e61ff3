package hashing

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// Method identifies how much of a file contributed to a digest.
type Method string

const (
	// MethodFull digests the entire byte stream.
	MethodFull Method = "full"
	// MethodTail digests only the trailing tail window of a large file.
	MethodTail Method = "tail10m"
)

// tailWindowBytes is the fixed trailing window digested for large files.
// A var only so tests can shrink the window instead of writing 10 MiB fixtures.
var tailWindowBytes = int64(10 * 1024 * 1024)

// Fingerprint identifies file content. Digests computed under different
// methods are not comparable, so the method is part of the identity.
type Fingerprint struct {
	Digest string
	Size   int64
	Method Method
}

// Result carries the outcome of one file in a batch. Err is set when the file
// could not be read; the fingerprint is zero in that case.
type Result struct {
	Fingerprint Fingerprint
	Err         error
}

// Hasher computes tiered content fingerprints. Files at or below the
// threshold are digested in full; larger files are digested over their
// trailing window only.
type Hasher struct {
	threshold int64
	workers   int
}

// New constructs a Hasher. thresholdMiB selects the full/tail cutoff; zero
// pushes every non-empty file onto the tail path. workers bounds batch
// concurrency.
func New(thresholdMiB, workers int) *Hasher {
	if thresholdMiB < 0 {
		thresholdMiB = 10
	}
	if workers <= 0 {
		workers = 4
	}
	return &Hasher{
		threshold: int64(thresholdMiB) * 1024 * 1024,
		workers:   workers,
	}
}

// Fingerprint computes the tiered fingerprint for path. The method is a
// function of file size and the configured threshold, never a caller choice.
func (h *Hasher) Fingerprint(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	if size <= h.threshold {
		digest, err := digestFull(path)
		if err != nil {
			return Fingerprint{}, err
		}
		return Fingerprint{Digest: digest, Size: size, Method: MethodFull}, nil
	}

	digest, err := digestTail(path, size)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Digest: digest, Size: size, Method: MethodTail}, nil
}

// FullFingerprint digests the entire file regardless of size. Used to verify
// suspected duplicates when a tail digest matched.
func (h *Hasher) FullFingerprint(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	digest, err := digestFull(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Digest: digest, Size: info.Size(), Method: MethodFull}, nil
}

// FingerprintAll fingerprints many files concurrently using the configured
// worker count. Each file fails independently; the map always has an entry
// per input path. Cancelling the context marks remaining files with the
// context error instead of abandoning them silently.
func (h *Hasher) FingerprintAll(ctx context.Context, paths []string) map[string]Result {
	results := make(map[string]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < h.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				var res Result
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Fingerprint, res.Err = h.Fingerprint(path)
				}
				mu.Lock()
				results[path] = res
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	return results
}

func digestFull(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	sum := md5.New()
	if _, err := io.Copy(sum, file); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func digestTail(path string, size int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if size > tailWindowBytes {
		if _, err := file.Seek(size-tailWindowBytes, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek %s: %w", path, err)
		}
	}

	sum := md5.New()
	if _, err := io.CopyN(sum, file, tailWindowBytes); err != nil && err != io.EOF {
		return "", fmt.Errorf("read tail %s: %w", path, err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
