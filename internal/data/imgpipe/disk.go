package imgpipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

const diskExt = ".zst"

// diskCache stores zstd-compressed images under dir, one file per URI.
type diskCache struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newDiskCache(dir string) (*diskCache, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &diskCache{dir: dir, encoder: encoder, decoder: decoder}, nil
}

func (d *diskCache) path(uri string) string {
	return filepath.Join(d.dir, strconv.FormatUint(xxhash.Sum64String(uri), 16)+diskExt)
}

func (d *diskCache) has(uri string) bool {
	_, err := os.Stat(d.path(uri))
	return err == nil
}

// get returns the decompressed bytes; a missing file is (nil, false, nil).
func (d *diskCache) get(uri string) ([]byte, bool, error) {
	raw, err := os.ReadFile(d.path(uri))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	data, err := d.decoder.DecodeAll(raw, nil)
	if err != nil {
		// Unreadable entries are dropped so the next load refetches.
		_ = os.Remove(d.path(uri))
		return nil, false, fmt.Errorf("decode cached image: %w", err)
	}
	return data, true, nil
}

func (d *diskCache) put(uri string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := d.path(uri)
	tmp, err := os.CreateTemp(d.dir, ".img-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, werr := tmp.Write(d.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)))
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cached image: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cached image: %w", err)
	}
	return nil
}

// clear removes every cache file and returns how many were removed.
func (d *diskCache) clear() (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), diskExt) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (d *diskCache) usage() (files int, size int64) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), diskExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size
}

func (d *diskCache) close() {
	d.encoder.Close()
	d.decoder.Close()
}
