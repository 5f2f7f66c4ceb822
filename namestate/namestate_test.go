package namestate

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetName_AppendedPath(t *testing.T) {
	t.Parallel()
	ns := New("Api", "GET", "/", "users")
	ns.AppendPath("1", nil)

	name, ok := ns.GetName()
	require.True(t, ok)
	assert.Equal(t, "Api/GET//users/1", name)
}

func TestGetPath_NothingRecorded(t *testing.T) {
	t.Parallel()
	ns := New("Api", "GET", "/", "")

	path, ok := ns.GetPath()
	assert.False(t, ok)
	assert.Empty(t, path)

	_, ok = ns.GetName()
	assert.False(t, ok)
}

func TestGetPath_DeduplicatesSlashes(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "/api/")
	ns.AppendPath("/v1", nil)
	ns.AppendPath("items", nil)
	ns.AppendPath("/", nil)

	path, ok := ns.GetPath()
	require.True(t, ok)
	assert.Equal(t, "/api/v1/items", path)
}

func TestPopPathTo(t *testing.T) {
	t.Parallel()

	t.Run("pops back through the matching frame", func(t *testing.T) {
		t.Parallel()
		ns := New("", "", "", "")
		for _, p := range []string{"users", "1", "edit"} {
			ns.AppendPath(p, nil)
		}
		ns.PopPathTo("users")

		_, ok := ns.GetPath()
		assert.False(t, ok)
	})

	t.Run("uses the last matching frame", func(t *testing.T) {
		t.Parallel()
		ns := New("", "", "", "")
		for _, p := range []string{"a", "b", "a", "c"} {
			ns.AppendPath(p, nil)
		}
		ns.PopPathTo("a")

		path, _ := ns.GetPath()
		assert.Equal(t, "/a/b", path)
	})

	t.Run("no match leaves the stack alone", func(t *testing.T) {
		t.Parallel()
		ns := New("", "", "", "users")
		ns.PopPathTo("missing")

		path, _ := ns.GetPath()
		assert.Equal(t, "/users", path)
	})
}

func TestPopPath_SingleFrame(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "a")
	ns.AppendPath("b", nil)
	ns.PopPath()

	path, _ := ns.GetPath()
	assert.Equal(t, "/a", path)
}

func TestMarkPath_FallbackWhenStackEmpty(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "orders")
	ns.AppendPath(":id", map[string]string{"id": "7"})
	ns.MarkPath()
	ns.PopPath()
	ns.PopPath()

	path, ok := ns.GetPath()
	require.True(t, ok)
	assert.Equal(t, "/orders/:id", path)
}

func TestSetters(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "")
	ns.SetPrefix("Nodejs/")
	ns.SetVerb("post")
	ns.AppendPattern(regexp.MustCompile(`^/items/\d+$`), nil)

	assert.Equal(t, "Nodejs", ns.Prefix())
	assert.Equal(t, "POST", ns.Verb())
	path, _ := ns.GetPath()
	assert.Equal(t, `/^/items/\d+$`, path)
}

func TestAppendPathIfEmpty(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "")
	ns.AppendPathIfEmpty("first", nil)
	ns.AppendPathIfEmpty("second", nil)

	path, _ := ns.GetPath()
	assert.Equal(t, "/first", path)
}

func TestFreeze_MutatorsAreNoOps(t *testing.T) {
	t.Parallel()
	ns := New("Api", "GET", "/", "users")
	ns.Freeze()

	assert.False(t, ns.AppendPath("1", nil))
	assert.False(t, ns.SetVerb("post"))
	assert.False(t, ns.SetPrefix("Other"))
	assert.False(t, ns.PopPath())
	assert.False(t, ns.SetName("x", "y", "/", "z"))
	assert.True(t, ns.IsFrozen())

	name, _ := ns.GetName()
	assert.Equal(t, "Api/GET//users", name)
}

func TestGetStatusName(t *testing.T) {
	t.Parallel()
	ns := New("Api", "GET", "/", "users")

	name, ok := ns.GetStatusName(404)
	require.True(t, ok)
	assert.Equal(t, "Api/GET/(not found)", name)

	name, _ = ns.GetStatusName(405)
	assert.Equal(t, "Api/GET/(method not allowed)", name)

	name, _ = ns.GetStatusName(501)
	assert.Equal(t, "Api/GET/(not implemented)", name)

	_, ok = ns.GetStatusName(500)
	assert.False(t, ok)
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()
	ns := New("", "", "", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ns.AppendPath("x", nil)
		}()
	}
	wg.Wait()

	path, _ := ns.GetPath()
	assert.Len(t, path, 100)
}
