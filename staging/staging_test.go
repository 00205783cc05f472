package staging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/analystloop/tabular"
)

type upload struct {
	path string
	data string
}

type recordingUploader struct {
	uploads []upload
	failOn  string
}

func (u *recordingUploader) Upload(_ context.Context, data []byte, remotePath string) error {
	if remotePath == u.failOn {
		return errors.New("disk full")
	}
	u.uploads = append(u.uploads, upload{path: remotePath, data: string(data)})
	return nil
}

func mustBuild(t *testing.T, name string, rows [][]any, cols ...string) *tabular.Dataset {
	t.Helper()
	ds, err := tabular.Build(rows, cols, name)
	require.NoError(t, err)
	return ds
}

func TestStage_Empty(t *testing.T) {
	up := &recordingUploader{}
	preamble, err := New(up).Stage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, preamble)
	assert.Empty(t, up.uploads)
}

func TestStage_PreambleAndUploads(t *testing.T) {
	up := &recordingUploader{}
	s := New(up)

	preamble, err := s.Stage(context.Background(), []*tabular.Dataset{
		mustBuild(t, "s", [][]any{{877}}, "session_count"),
		mustBuild(t, "roles", [][]any{{"user", 3}, {"assistant", 4}}, "role", "n"),
	})
	require.NoError(t, err)

	want := "import pandas as pd\n" +
		"s = pd.read_csv(\"/home/user/data/s.csv\")\n" +
		"roles = pd.read_csv(\"/home/user/data/roles.csv\")\n"
	assert.Equal(t, want, preamble)

	require.Len(t, up.uploads, 2)
	assert.Equal(t, upload{path: "/home/user/data/s.csv", data: "session_count\n877\n"}, up.uploads[0])
	assert.Equal(t, "/home/user/data/roles.csv", up.uploads[1].path)
}

func TestStage_CustomDataDir(t *testing.T) {
	s := New(&recordingUploader{}, func(o *Options) { o.DataDir = "/mnt/in" })
	assert.Equal(t, "/mnt/in/x.csv", s.RemotePath("x"))
}

func TestStage_AbortsOnFirstFailure(t *testing.T) {
	up := &recordingUploader{failOn: "/home/user/data/b.csv"}

	preamble, err := New(up).Stage(context.Background(), []*tabular.Dataset{
		mustBuild(t, "a", [][]any{{1}}, "x"),
		mustBuild(t, "b", [][]any{{2}}, "x"),
		mustBuild(t, "c", [][]any{{3}}, "x"),
	})
	assert.Empty(t, preamble)
	require.ErrorIs(t, err, ErrStage)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "b", se.Dataset)
	assert.Contains(t, err.Error(), "disk full")

	require.Len(t, up.uploads, 1, "uploads after the failing dataset must not happen")
	assert.Equal(t, "/home/user/data/a.csv", up.uploads[0].path)
}
