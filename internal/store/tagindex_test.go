package store_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"inkwell/internal/store"
)

func Test_TagIndex_Query_Orders_By_PublishedAt_Desc_Then_Slug_Asc(t *testing.T) {
	t.Parallel()

	older := time.Date(2023, 6, 14, 12, 3, 0, 0, time.UTC)
	newer := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	idx := store.NewTagIndex()

	// Add in an order unrelated to the expected output order.
	idx.Add("zeta", older, []string{"rust"})
	idx.Add("newest", newer, []string{"rust"})
	idx.Add("alpha", older, []string{"rust"})

	assert.Equal(t, []string{"newest", "alpha", "zeta"}, idx.Query("rust"))
}

func Test_TagIndex_Query_Returns_Empty_For_Unknown_Tag(t *testing.T) {
	t.Parallel()

	idx := store.NewTagIndex()
	idx.Add("a", time.Now().UTC(), []string{"rust"})

	got := idx.Query("nope")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func Test_TagIndex_Add_Indexes_Slug_Under_Every_Tag(t *testing.T) {
	t.Parallel()

	published := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	idx := store.NewTagIndex()
	idx.Add("exploring-actix", published, []string{"rust", "apis"})

	assert.Equal(t, []string{"exploring-actix"}, idx.Query("rust"))
	assert.Equal(t, []string{"exploring-actix"}, idx.Query("apis"))
	assert.Equal(t, []string{"apis", "rust"}, idx.Tags())
}

func Test_TagIndex_Remove_Deletes_Slug_And_Prunes_Empty_Tags(t *testing.T) {
	t.Parallel()

	older := time.Date(2023, 6, 14, 12, 3, 0, 0, time.UTC)
	newer := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	idx := store.NewTagIndex()
	idx.Add("a", newer, []string{"rust", "apis"})
	idx.Add("b", older, []string{"rust"})

	idx.Remove("a")

	assert.Equal(t, []string{"b"}, idx.Query("rust"))
	assert.Empty(t, idx.Query("apis"), "empty tag list is pruned")
	assert.Equal(t, []string{"rust"}, idx.Tags())
}

func Test_TagIndex_Snapshot_Matches_Queries(t *testing.T) {
	t.Parallel()

	older := time.Date(2023, 6, 14, 12, 3, 0, 0, time.UTC)
	newer := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	idx := store.NewTagIndex()
	idx.Add("exploring-actix", newer, []string{"rust", "apis"})
	idx.Add("type-safe-apis", older, []string{"typescript", "api development"})

	want := map[string][]string{
		"rust":            {"exploring-actix"},
		"apis":            {"exploring-actix"},
		"typescript":      {"type-safe-apis"},
		"api development": {"type-safe-apis"},
	}

	if diff := cmp.Diff(want, idx.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
