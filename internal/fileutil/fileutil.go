// Package fileutil provides the move and naming primitives the ingestion
// pipeline relies on: collision-safe moves, archive filename synthesis, and
// verified cross-device copies.
package fileutil

import (
	"bytes"
	"crypto/md5" //nolint:gosec
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	archiveNameAttempts = 2000
	conflictSuffixLimit = 1000000
)

// SafeMove moves src to dst, creating the destination directory and
// appending a numeric suffix when dst is already taken. Returns the path
// the file actually landed at.
func SafeMove(src, dst string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create destination dir: %w", err)
	}

	if !exists(dst) {
		if err := MoveFile(src, dst); err != nil {
			return "", err
		}
		return dst, nil
	}

	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(dst, ext)
	for i := 1; i < conflictSuffixLimit; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if exists(candidate) {
			continue
		}
		if err := MoveFile(src, candidate); err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("too many name conflicts for %s", dst)
}

// MoveFile renames src to dst, falling back to a verified copy plus delete
// when the rename crosses filesystems.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	info, statErr := os.Stat(src)
	if statErr != nil {
		return fmt.Errorf("stat source: %w", statErr)
	}
	if copyErr := CopyFileVerified(src, dst); copyErr != nil {
		return fmt.Errorf("cross-device move: %w", copyErr)
	}
	_ = os.Chtimes(dst, time.Now(), info.ModTime())
	if rmErr := os.Remove(src); rmErr != nil {
		return fmt.Errorf("remove source after copy: %w", rmErr)
	}
	return nil
}

// CopyFileVerified streams src to dst with digest and size verification,
// removing dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := md5.New() //nolint:gosec
	dstHasher := md5.New() //nolint:gosec
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// ArchiveName synthesizes a collision-free archival filename of the form
// IMG_<yyyymmdd>_<6 digits><ext>. A candidate stem is rejected when any of
// the master, sidecar, or clip sibling names already exists in targetDir,
// so companions moved later can always share the stem. After the retry
// budget a longer random token is used instead.
func ArchiveName(targetDir, yyyymmdd, ext, sidecarExt, clipExt string) string {
	ext = normalizeExt(ext)
	sidecarExt = normalizeExt(sidecarExt)
	clipExt = normalizeExt(clipExt)

	for i := 0; i < archiveNameAttempts; i++ {
		stem := fmt.Sprintf("IMG_%s_%06d", yyyymmdd, randBelow(1000000))
		if stemTaken(targetDir, stem, ext, sidecarExt, clipExt) {
			continue
		}
		return stem + ext
	}
	return fmt.Sprintf("IMG_%s_%s%s", yyyymmdd, randHex(4), ext)
}

// UniqueReviewName keeps the original name unless it is already taken in
// dir, in which case a short random token is inserted before the extension.
func UniqueReviewName(dir, name string) string {
	if !exists(filepath.Join(dir, name)) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", stem, randHex(3), ext)
}

func stemTaken(dir, stem string, exts ...string) bool {
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		if exists(filepath.Join(dir, stem+ext)) {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func randBelow(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return time.Now().UnixNano() % n
	}
	return v.Int64()
}

func randHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
