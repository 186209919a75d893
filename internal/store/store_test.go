package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/content"
	"inkwell/internal/store"
)

func doc(slug, path string, published time.Time, tags ...string) content.Document {
	if tags == nil {
		tags = []string{}
	}

	return content.Document{
		Slug:        slug,
		SourcePath:  path,
		Title:       "Title " + slug,
		PublishedAt: published,
		Tags:        tags,
		Body:        "body\n",
		Fingerprint: "fp-" + slug + "-" + path,
	}
}

func Test_Store_Insert_Rejects_Second_Document_With_Same_Slug(t *testing.T) {
	t.Parallel()

	st := store.New()
	published := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	first := doc("exploring-actix", "a/exploring-actix.md", published)
	second := doc("exploring-actix", "b/exploring-actix.md", published)

	require.NoError(t, st.Insert(first))

	err := st.Insert(second)

	var collision *store.CollisionError

	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "exploring-actix", collision.Slug)
	assert.Equal(t, "a/exploring-actix.md", collision.ExistingPath)

	// First-write-wins: the prior document is untouched.
	stored, ok := st.Get("exploring-actix")
	require.True(t, ok)
	assert.Equal(t, "a/exploring-actix.md", stored.SourcePath)
	assert.Equal(t, 1, st.Len())
}

func Test_Store_Remove_Is_NoOp_When_Slug_Absent(t *testing.T) {
	t.Parallel()

	st := store.New()

	st.Remove("ghost")

	require.NoError(t, st.Insert(doc("a", "a.md", time.Now().UTC())))
	st.Remove("a")
	st.Remove("a")

	assert.Equal(t, 0, st.Len())

	_, ok := st.Get("a")
	assert.False(t, ok)
}

func Test_Store_All_Orders_By_PublishedAt_Desc_Then_Slug_Asc(t *testing.T) {
	t.Parallel()

	older := time.Date(2023, 6, 14, 12, 3, 0, 0, time.UTC)
	newer := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)

	// Insert in an order unrelated to the expected output order.
	docs := []content.Document{
		doc("zeta", "zeta.md", older),
		doc("newest", "newest.md", newer),
		doc("alpha", "alpha.md", older),
	}

	st := store.New()
	for _, d := range docs {
		require.NoError(t, st.Insert(d))
	}

	all := st.All()
	require.Len(t, all, 3)

	assert.Equal(t, "newest", all[0].Slug)
	assert.Equal(t, "alpha", all[1].Slug, "ties broken by slug ascending")
	assert.Equal(t, "zeta", all[2].Slug)
}

func Test_Store_All_Is_Insertion_Order_Independent(t *testing.T) {
	t.Parallel()

	published := time.Date(2023, 6, 24, 12, 2, 53, 0, time.UTC)
	slugs := []string{"c", "a", "b", "e", "d"}

	forward := store.New()
	for _, s := range slugs {
		require.NoError(t, forward.Insert(doc(s, s+".md", published)))
	}

	backward := store.New()
	for i := len(slugs) - 1; i >= 0; i-- {
		require.NoError(t, backward.Insert(doc(slugs[i], slugs[i]+".md", published)))
	}

	assert.Equal(t, forward.All(), backward.All())
}
