package transfer

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/tinygot/pkg/object"
)

const helloOid = "5b211494ba9e0f5c98ca51e8732bda579d8487ef"

func TestBundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, dst := newStore(t), newStore(t)

	var hashes []object.Hash
	for _, obj := range []struct {
		typ  object.ObjectType
		data string
	}{
		{object.TypeBlob, "hello"},
		{object.TypeBlob, ""},
		{object.TypeTree, "100644 a.txt\x00abc"},
		{object.TypeCommit, "tree abc\n\nmessage\n"},
	} {
		h, err := src.Write(obj.typ, []byte(obj.data))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	var buf bytes.Buffer
	n, err := WriteBundle(ctx, &buf, src, append(hashes, hashes[0]))
	require.NoError(t, err)
	require.Equal(t, len(hashes), n)

	got, err := ReadBundle(ctx, bytes.NewReader(buf.Bytes()), dst)
	require.NoError(t, err)
	require.Equal(t, hashes, got)
	for _, h := range hashes {
		require.NoError(t, dst.Verify(h))
	}
	require.Equal(t, dirSnapshot(t, src), dirSnapshot(t, dst))

	// Importing again is harmless.
	_, err = ReadBundle(ctx, bytes.NewReader(buf.Bytes()), dst)
	require.NoError(t, err)
}

func TestWriteBundleMissingObject(t *testing.T) {
	src := newStore(t)
	var buf bytes.Buffer
	_, err := WriteBundle(context.Background(), &buf, src, []object.Hash{object.HashObject(object.TypeBlob, []byte("x"))})
	require.ErrorIs(t, err, object.ErrObjectNotFound)
}

func TestReadBundleRejectsTampering(t *testing.T) {
	h := object.HashObject(object.TypeBlob, []byte("genuine"))
	raw := object.Envelope(object.TypeBlob, []byte("forged!"))

	var plain bytes.Buffer
	plain.WriteString(bundleHeader + "\n")
	plain.WriteString(string(h) + " " + strconv.Itoa(len(raw)) + "\n")
	plain.Write(raw)

	dst := newStore(t)
	_, err := ReadBundle(context.Background(), bytes.NewReader(compress(t, plain.Bytes())), dst)
	require.ErrorIs(t, err, object.ErrCorruptObject)
	require.False(t, dst.Has(h))
}

func TestReadBundleMalformed(t *testing.T) {
	dst := newStore(t)
	for name, body := range map[string]string{
		"bad header":          "not-a-bundle\n",
		"bad entry":           bundleHeader + "\nxyz\n",
		"bad size":            bundleHeader + "\n" + string(object.HashObject(object.TypeBlob, nil)) + " -1\n",
		"truncated":           bundleHeader + "\n" + string(object.HashObject(object.TypeBlob, nil)) + " 10\nblob",
		"oversized truncated": bundleHeader + "\n" + helloOid + " " + strconv.Itoa(maxBundleObjectSize) + "\nb",
	} {
		_, err := ReadBundle(context.Background(), bytes.NewReader(compress(t, []byte(body))), dst)
		require.ErrorIs(t, err, ErrBadBundle, name)
	}
}

// A header claiming a huge object must not allocate that much up front.
func TestReadBundleTruncatedDoesNotPreallocate(t *testing.T) {
	dst := newStore(t)
	body := compress(t, []byte(bundleHeader+"\n"+helloOid+" "+strconv.Itoa(maxBundleObjectSize)+"\nb"))

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := ReadBundle(context.Background(), bytes.NewReader(body), dst)
	runtime.ReadMemStats(&after)

	require.ErrorIs(t, err, ErrBadBundle)
	require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
