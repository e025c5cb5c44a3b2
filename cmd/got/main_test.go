package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/repo"
)

const helloBlob = "5b211494ba9e0f5c98ca51e8732bda579d8487ef"

// runGot executes the root command with args and returns combined output.
func runGot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var output bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&output)
	root.SetErr(&output)
	err := root.Execute()
	return output.String(), err
}

func mustRunGot(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runGot(t, "", args...)
	require.NoError(t, err, "got %v\noutput:\n%s", args, out)
	return out
}

func initCmdRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out := mustRunGot(t, "init", dir)
	require.Contains(t, out, "initialized empty got repository")
	return dir
}

func TestVersionCmd(t *testing.T) {
	out := mustRunGot(t, "version")
	require.Equal(t, "got "+version+"\n", out)
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	out := mustRunGot(t, "init", "-b", "trunk", dir)
	require.Contains(t, out, filepath.Join(dir, ".got"))

	head, err := os.ReadFile(filepath.Join(dir, ".got", "HEAD"))
	require.NoError(t, err)
	require.Equal(t, "ref: refs/heads/trunk\n", string(head))

	_, err = runGot(t, "", "init", dir)
	require.ErrorIs(t, err, repo.ErrAlreadyExists)
}

func TestHashObjectAndCatFile(t *testing.T) {
	dir := initCmdRepo(t)

	out := mustRunGot(t, "-C", dir, "hash-object", "--stdin")
	require.Equal(t, "48ede76ef68a65b7292840b4ad4d1f111359d82a\n", out, "hash of the empty blob")

	out, err := runGot(t, "hello", "-C", dir, "hash-object", "--stdin")
	require.NoError(t, err)
	require.Equal(t, helloBlob+"\n", out)

	// Without -w nothing is stored.
	_, err = runGot(t, "", "-C", dir, "cat-file", helloBlob)
	require.ErrorIs(t, err, object.ErrObjectNotFound)

	out, err = runGot(t, "hello", "-C", dir, "hash-object", "-w", "--stdin")
	require.NoError(t, err)
	require.Equal(t, helloBlob+"\n", out)

	require.Equal(t, "hello", mustRunGot(t, "-C", dir, "cat-file", helloBlob))
	require.Equal(t, "hello", mustRunGot(t, "-C", dir, "cat-file", "-e", "blob", helloBlob))
	require.Equal(t, "blob\n", mustRunGot(t, "-C", dir, "cat-file", "--show-type", helloBlob))

	_, err = runGot(t, "", "-C", dir, "cat-file", "-e", "tree", helloBlob)
	var mismatch *object.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, object.TypeBlob, mismatch.Actual)
}

func TestHashObjectFromFile(t *testing.T) {
	dir := initCmdRepo(t)
	p := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))

	out := mustRunGot(t, "-C", dir, "hash-object", "-t", "tree", p)
	require.Equal(t, string(object.HashObject(object.TypeTree, []byte("hello")))+"\n", out)

	_, err := runGot(t, "", "-C", dir, "hash-object")
	require.ErrorContains(t, err, "exactly one of --stdin or <file>")
}

func TestRefCommands(t *testing.T) {
	dir := initCmdRepo(t)
	_, err := runGot(t, "hello", "-C", dir, "hash-object", "-w", "--stdin")
	require.NoError(t, err)

	// HEAD -> refs/heads/main, so updating HEAD writes the branch.
	mustRunGot(t, "-C", dir, "update-ref", "HEAD", helloBlob)
	require.Equal(t, helloBlob+"\n", mustRunGot(t, "-C", dir, "get-ref", "refs/heads/main"))
	require.Equal(t, "ref: refs/heads/main\n", mustRunGot(t, "-C", dir, "get-ref", "--no-deref", "HEAD"))
	require.Equal(t, "hello", mustRunGot(t, "-C", dir, "cat-file", "main"))

	mustRunGot(t, "-C", dir, "symbolic-ref", "refs/heads/alias", "refs/heads/main")
	out := mustRunGot(t, "-C", dir, "show-ref")
	require.Equal(t,
		helloBlob+" HEAD\n"+
			helloBlob+" refs/heads/alias\n"+
			helloBlob+" refs/heads/main\n",
		out)

	out = mustRunGot(t, "-C", dir, "show-ref", "--no-deref", "refs/heads/a")
	require.Equal(t, "ref: refs/heads/main refs/heads/alias\n", out)

	mustRunGot(t, "-C", dir, "delete-ref", "--no-deref", "refs/heads/alias")
	_, err = runGot(t, "", "-C", dir, "get-ref", "refs/heads/alias")
	require.ErrorContains(t, err, "not found")

	_, err = runGot(t, "", "-C", dir, "update-ref", "refs/heads/x", "not-a-hash")
	require.ErrorIs(t, err, object.ErrInvalidHash)
}

func TestBranchAndTagCommands(t *testing.T) {
	dir := initCmdRepo(t)

	// No commit on main yet, so HEAD does not resolve.
	_, err := runGot(t, "", "-C", dir, "branch", "topic")
	require.Error(t, err)

	_, err = runGot(t, "hello", "-C", dir, "hash-object", "-w", "--stdin")
	require.NoError(t, err)
	mustRunGot(t, "-C", dir, "update-ref", "HEAD", helloBlob)

	mustRunGot(t, "-C", dir, "branch", "topic")
	require.Equal(t, "* main\n  topic\n", mustRunGot(t, "-C", dir, "branch"))

	_, err = runGot(t, "", "-C", dir, "branch", "-d", "main")
	require.ErrorContains(t, err, "current branch")
	mustRunGot(t, "-C", dir, "branch", "-d", "topic")
	require.Equal(t, "* main\n", mustRunGot(t, "-C", dir, "branch"))

	mustRunGot(t, "-C", dir, "tag", "v1", helloBlob)
	_, err = runGot(t, "", "-C", dir, "tag", "v1")
	require.ErrorIs(t, err, repo.ErrRefExists)
	mustRunGot(t, "-C", dir, "tag", "-f", "v1")
	require.Equal(t, "v1\n", mustRunGot(t, "-C", dir, "tag"))
	require.Equal(t, "hello", mustRunGot(t, "-C", dir, "cat-file", "v1"))

	mustRunGot(t, "-C", dir, "tag", "-d", "v1")
	require.Empty(t, mustRunGot(t, "-C", dir, "tag"))
}

func TestStageCommands(t *testing.T) {
	dir := initCmdRepo(t)
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	b := filepath.Join(dir, "sub", "b.txt")
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	out := mustRunGot(t, "-C", dir, "stage", a, b)
	require.Contains(t, out, helloBlob+" a.txt\n")

	out = mustRunGot(t, "-C", dir, "ls-files")
	bHash := object.HashObject(object.TypeBlob, []byte("b"))
	require.Equal(t, helloBlob+" a.txt\n"+string(bHash)+" sub/b.txt\n", out)

	mustRunGot(t, "-C", dir, "unstage", a)
	require.Equal(t, string(bHash)+" sub/b.txt\n", mustRunGot(t, "-C", dir, "ls-files"))

	_, err := runGot(t, "", "-C", dir, "unstage", a)
	require.ErrorContains(t, err, "not staged")
}

func TestRemoteAndTransferCommands(t *testing.T) {
	local := initCmdRepo(t)
	remote := initCmdRepo(t)

	out := mustRunGot(t, "-C", local, "remote", "add", "origin", remote)
	require.Contains(t, out, `added remote "origin"`)
	require.Equal(t, "origin\t"+remote+"\n", mustRunGot(t, "-C", local, "remote"))

	_, err := runGot(t, "hello", "-C", remote, "hash-object", "-w", "--stdin")
	require.NoError(t, err)

	out = mustRunGot(t, "-C", local, "fetch-objects", "origin", helloBlob)
	require.Equal(t, "fetched 1 object(s)\n", out)
	require.Equal(t, "hello", mustRunGot(t, "-C", local, "cat-file", helloBlob))

	out = mustRunGot(t, "-C", local, "fetch-objects", "origin", helloBlob)
	require.Equal(t, "fetched 0 object(s)\n", out)

	_, err = runGot(t, "world", "-C", local, "hash-object", "-w", "--stdin")
	require.NoError(t, err)
	out = mustRunGot(t, "-C", local, "--concurrency", "2", "push-objects", "--all", remote)
	require.Equal(t, "pushed 2 object(s)\n", out)
	world := object.HashObject(object.TypeBlob, []byte("world"))
	require.Equal(t, "world", mustRunGot(t, "-C", remote, "cat-file", string(world)))

	_, err = runGot(t, "", "-C", local, "fetch-objects", "origin")
	require.ErrorContains(t, err, "no objects given")

	mustRunGot(t, "-C", local, "remote", "remove", "origin")
	require.Empty(t, mustRunGot(t, "-C", local, "remote"))
}

func TestBundleCommands(t *testing.T) {
	src := initCmdRepo(t)
	dst := initCmdRepo(t)
	_, err := runGot(t, "hello", "-C", src, "hash-object", "-w", "--stdin")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "objects.bundle")
	out := mustRunGot(t, "-C", src, "bundle", "create", "--all", file)
	require.Contains(t, out, "bundled 1 object(s)")

	out = mustRunGot(t, "-C", dst, "bundle", "unbundle", file)
	require.Equal(t, "imported 1 object(s)\n", out)
	require.Equal(t, "hello", mustRunGot(t, "-C", dst, "cat-file", helloBlob))
}

func TestVerifyCmd(t *testing.T) {
	dir := initCmdRepo(t)
	_, err := runGot(t, "hello", "-C", dir, "hash-object", "-w", "--stdin")
	require.NoError(t, err)
	mustRunGot(t, "-C", dir, "update-ref", "HEAD", helloBlob)

	out := mustRunGot(t, "-C", dir, "verify")
	require.Contains(t, out, "ok: verified 1 object(s)")

	mustRunGot(t, "-C", dir, "update-ref", "refs/tags/gone", "0000000000000000000000000000000000000000")
	out, err = runGot(t, "", "-C", dir, "verify")
	require.Error(t, err)
	require.Contains(t, out, "dangling ref refs/tags/gone")
}

func TestConfigDoesNotLeakBetweenRuns(t *testing.T) {
	dir := initCmdRepo(t)
	cfg := filepath.Join(t.TempDir(), "got.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("repo: "+dir+"\n"), 0o644))

	// The config file selects the repository.
	_, err := runGot(t, "hello", "--config", cfg, "hash-object", "-w", "--stdin")
	require.NoError(t, err)
	require.Equal(t, "hello", mustRunGot(t, "--config", cfg, "cat-file", helloBlob))

	// A later run without --config or -C must not inherit it.
	t.Chdir(t.TempDir())
	_, err = runGot(t, "", "cat-file", helloBlob)
	require.ErrorIs(t, err, repo.ErrNotARepository)

	// Nor a flag value from an earlier run.
	mustRunGot(t, "--cache-size", "0", "-C", dir, "cat-file", helloBlob)
	_, err = runGot(t, "", "ls-files")
	require.ErrorIs(t, err, repo.ErrNotARepository)
}

func TestMissingExplicitConfigFails(t *testing.T) {
	_, err := runGot(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	require.ErrorContains(t, err, "read config")
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := runGot(t, "", "-C", t.TempDir(), "ls-files")
	require.ErrorIs(t, err, repo.ErrNotARepository)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runGot(t, "", "--log-level", "loud", "version")
	require.ErrorContains(t, err, "invalid log level")
}
