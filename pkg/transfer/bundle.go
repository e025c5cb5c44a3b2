package transfer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/tinygot/pkg/object"
)

// A bundle carries a set of objects between repositories that cannot see each
// other's storage. The zstd-compressed stream is
//
//	tinygot-bundle 1\n
//	<oid> <size>\n<raw object bytes>   (repeated)
//
// where the raw bytes are exactly the stored "type\0content" envelope.
const bundleHeader = "tinygot-bundle 1"

// maxBundleObjectSize caps a single object read from a bundle.
const maxBundleObjectSize = 1 << 30

var ErrBadBundle = errors.New("malformed bundle")

// WriteBundle writes the objects named by hashes from src to w. It returns
// the number of objects written.
func WriteBundle(ctx context.Context, w io.Writer, src *object.Store, hashes []object.Hash) (int, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("write bundle: %w", err)
	}

	n, err := writeBundleEntries(ctx, enc, src, dedupe(hashes))
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("write bundle: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("write bundle: %w", err)
	}
	return n, nil
}

func writeBundleEntries(ctx context.Context, w io.Writer, src *object.Store, hashes []object.Hash) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n", bundleHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, h := range hashes {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		raw, err := readRaw(src, h)
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintf(bw, "%s %d\n", h, len(raw)); err != nil {
			return n, err
		}
		if _, err := bw.Write(raw); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// ReadBundle imports every object in the bundle read from r into dst and
// returns the hashes it contained. Each object is checked against its hash
// before it is stored; objects dst already has are not rewritten.
func ReadBundle(ctx context.Context, r io.Reader, dst *object.Store) ([]object.Hash, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	header, err := br.ReadString('\n')
	if err != nil || strings.TrimSuffix(header, "\n") != bundleHeader {
		return nil, fmt.Errorf("read bundle: %w: bad header", ErrBadBundle)
	}

	var hashes []object.Hash
	for {
		if err := ctx.Err(); err != nil {
			return hashes, err
		}
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			return hashes, nil
		}
		if err != nil {
			return hashes, fmt.Errorf("read bundle: %w: truncated entry header", ErrBadBundle)
		}

		h, size, err := parseEntryHeader(strings.TrimSuffix(line, "\n"))
		if err != nil {
			return hashes, fmt.Errorf("read bundle: %w", err)
		}
		// Grow with the bytes actually present; the header size is untrusted.
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, br, int64(size)); err != nil {
			return hashes, fmt.Errorf("read bundle: %w: object %s truncated", ErrBadBundle, h)
		}
		raw := buf.Bytes()
		if got := object.HashRaw(raw); got != h {
			return hashes, fmt.Errorf("read bundle: object %s: %w: content hashes to %s", h, object.ErrCorruptObject, got)
		}
		if !dst.Has(h) {
			if err := dst.Import(h, bytes.NewReader(raw)); err != nil {
				return hashes, fmt.Errorf("read bundle: %w", err)
			}
		}
		hashes = append(hashes, h)
	}
}

func parseEntryHeader(line string) (object.Hash, int, error) {
	oid, sizeStr, ok := strings.Cut(line, " ")
	if !ok {
		return "", 0, fmt.Errorf("%w: entry header %q", ErrBadBundle, line)
	}
	h, err := object.ParseHash(oid)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 0 || size > maxBundleObjectSize {
		return "", 0, fmt.Errorf("%w: object %s has bad size %q", ErrBadBundle, h, sizeStr)
	}
	return h, size, nil
}

func readRaw(s *object.Store, h object.Hash) ([]byte, error) {
	rc, err := s.Open(h)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, object.StorageError("read object "+string(h), err)
	}
	return raw, nil
}
