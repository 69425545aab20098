package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailySets/internal/config"
	"DailySets/internal/infrastructure/feeds"
)

func TestDefaultRegistryBuildsEveryKind(t *testing.T) {
	t.Parallel()

	reg := NewDefaultRegistry(feeds.NewFetcher(nil, 0, ""))
	sources, err := reg.Build([]config.SourceConfig{
		{ID: "bbc", Name: "BBC", Kind: config.SourceRSS, Mode: "headline-satire", Category: "Real", URL: "http://example/rss"},
		{ID: "mash", Kind: config.SourceHTML, Mode: "headline-satire", URL: "http://example/", Selector: "li"},
		{ID: "art", Name: "Art", Kind: config.SourceWikidata, Mode: "guess-the-era", Query: "SELECT"},
		{ID: "curated", Kind: config.SourceStatic, Mode: "real-or-fake", Items: []config.StaticItemConfig{{Text: "x"}}},
	})
	require.NoError(t, err)
	require.Len(t, sources, 4)

	assert.IsType(t, &feeds.RSSSource{}, sources[0])
	assert.IsType(t, &feeds.HTMLListSource{}, sources[1])
	assert.IsType(t, &feeds.WikidataSource{}, sources[2])
	assert.IsType(t, &feeds.StaticSource{}, sources[3])

	assert.Equal(t, "BBC", sources[0].Name())
	assert.Equal(t, "mash", sources[1].Name(), "name defaults to id")
	assert.Equal(t, "guess-the-era", sources[2].ModeID())
}

func TestBuildReportsUnknownKinds(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	_, err := reg.Build([]config.SourceConfig{{ID: "a", Kind: "ftp"}, {ID: "b", Kind: "gopher"}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "source a: source kind ftp is not registered")
	assert.ErrorContains(t, err, "source b: source kind gopher is not registered")
}

func TestFilterKeepsListedSources(t *testing.T) {
	t.Parallel()

	reg := NewDefaultRegistry(feeds.NewFetcher(nil, 0, ""))
	sources, err := reg.Build([]config.SourceConfig{
		{ID: "a", Kind: config.SourceStatic, Mode: "m"},
		{ID: "b", Kind: config.SourceStatic, Mode: "m"},
	})
	require.NoError(t, err)

	assert.Len(t, Filter(sources, nil), 2)
	kept := Filter(sources, []string{"b", "missing"})
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].ID())
}
