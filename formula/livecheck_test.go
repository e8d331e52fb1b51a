package formula

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/tap"
)

func TestLivecheck(t *testing.T) {
	tag := "v1.8.0"
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/missing" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"tag_name": "` + tag + `"}`))
			},
		),
	)
	defer server.Close()

	f := sample()
	f.Version = "1.7.2"
	f.Livecheck = server.URL + "/latest"

	t.Run("newer upstream release", func(t *testing.T) {
		result, err := NewLivecheck(server.Client()).Check(context.Background(), f)
		require.NoError(t, err)

		assert.Equal(t, "1.7.2", result.Current)
		assert.Equal(t, "1.8.0", result.Latest)
		assert.True(t, result.Outdated)
	})

	t.Run("up to date", func(t *testing.T) {
		tag = "v1.7.2"
		defer func() { tag = "v1.8.0" }()

		result, err := NewLivecheck(nil).Check(context.Background(), f)
		require.NoError(t, err)
		assert.False(t, result.Outdated)
	})

	t.Run("http errors", func(t *testing.T) {
		broken := *f
		broken.Livecheck = server.URL + "/missing"

		_, err := NewLivecheck(nil).Check(context.Background(), &broken)
		require.Error(t, err)
		assert.True(t, tap.IsKind(err, tap.KindFetch))
	})

	t.Run("no livecheck declared", func(t *testing.T) {
		_, err := NewLivecheck(nil).Check(context.Background(), sample())
		assert.Error(t, err)
	})
}
