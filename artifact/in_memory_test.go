package artifact

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/analystloop/core"
)

var _ core.ArtifactStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGetIsolation(t *testing.T) {
	svc := NewInMemoryStore()
	data := []byte("png")
	require.NoError(t, svc.Save("c1", "plot", data))

	data[0] = 'P'
	out, err := svc.Get("c1", "plot")
	require.NoError(t, err)
	assert.Equal(t, "png", string(out))

	out[0] = 'x'
	out2, _ := svc.Get("c1", "plot")
	assert.Equal(t, "png", string(out2))
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	svc := NewInMemoryStore()
	require.NoError(t, svc.Save("c1", "b", []byte("2")))
	require.NoError(t, svc.Save("c1", "a", []byte("1")))

	ids, err := svc.List("c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, svc.Delete("c1", "a"))
	_, err = svc.Get("c1", "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete("c1", "a"), ErrNotFound)
	assert.ErrorIs(t, svc.Delete("nope", "a"), ErrNotFound)

	ids, _ = svc.List("unknown")
	assert.Empty(t, ids)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			if err := svc.Save("c1", fmt.Sprintf("a%d", i%10), []byte("data")); err != nil {
				t.Errorf("save err: %v", err)
			}
			_, _ = svc.List("c1")
		}()
	}
	wg.Wait()
	ids, err := svc.List("c1")
	require.NoError(t, err)
	assert.Len(t, ids, 10)
}
