package linkconverter

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestProcess_SingleArchive(t *testing.T) {
	data := zipArchive(t,
		"job/ko-KR/",
		"job/ko-KR/#content#language-master#en#products#x.xml",
		"job/ko-KR/notes.txt",
	)
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), []Archive{{Name: "A.zip", Data: data}})

	require.True(t, out.Success)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 2, out.Examined)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Failed)
	require.Equal(t, []string{"ko"}, out.Links.Locales())
	links := out.Links.Links("ko")
	require.Len(t, links, 1)
	assert.Equal(t, Link{
		URL:         "https://host.example/editor.html/content/language-master/ko/products/x.html",
		StoragePath: "content/language-master/ko/products/x.html",
		Locale:      "ko",
	}, links[0])
}

func TestProcess_IneligibleOnly(t *testing.T) {
	data := zipArchive(t, "job/ko-KR/notes.txt")
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), []Archive{{Name: "A.zip", Data: data}})

	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Links.Len())
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Failed)
}

func TestProcess_LatestArchiveWins(t *testing.T) {
	entry := "ko-KR/#content#language-master#en#b.xml"
	archives := []Archive{
		{Name: "A", Data: zipArchive(t, entry)},
		{Name: "B", Data: zipArchive(t, entry)},
	}
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), archives)

	require.True(t, out.Success)
	require.Equal(t, 1, out.Links.Len())
	l, ok := linkAt(out.Links, "ko", "content/language-master/ko/b.html")
	require.True(t, ok)
	assert.Equal(t, "B", l.Source)
	assert.Equal(t, 1, out.Duplicates)
	assert.Equal(t, []string{"resolved 1 duplicate paths (ko: 1)"}, out.Warnings)
}

func TestProcess_FirstArchiveWins(t *testing.T) {
	entry := "ko-KR/#content#language-master#en#b.xml"
	archives := []Archive{
		{Name: "A", Data: zipArchive(t, entry)},
		{Name: "B", Data: zipArchive(t, entry)},
	}
	out := NewAggregator(testMapping(), Options{Policy: PolicyFirstWins}).Process(testContext(t), archives)

	l, ok := linkAt(out.Links, "ko", "content/language-master/ko/b.html")
	require.True(t, ok)
	assert.Equal(t, "A", l.Source)
	assert.Equal(t, 1, out.Duplicates)
}

func TestProcess_ReplacementKeepsPosition(t *testing.T) {
	archives := []Archive{
		{Name: "A", Data: zipArchive(t,
			"ko-KR/#content#language-master#en#one.xml",
			"ko-KR/#content#language-master#en#two.xml",
		)},
		{Name: "B", Data: zipArchive(t,
			"ko-KR/#content#language-master#en#three.xml",
			"ko-KR/#content#language-master#en#one.xml",
		)},
	}
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), archives)

	var paths, sources []string
	for _, l := range out.Links.Links("ko") {
		paths = append(paths, l.StoragePath)
		sources = append(sources, l.Source)
	}
	assert.Equal(t, []string{
		"content/language-master/ko/one.html",
		"content/language-master/ko/two.html",
		"content/language-master/ko/three.html",
	}, paths)
	assert.Equal(t, []string{"B", "A", "B"}, sources)
}

func TestProcess_UnreadableArchive(t *testing.T) {
	archives := []Archive{
		{Name: "broken.zip", Data: []byte("this is not an archive")},
		{Name: "good.zip", Data: zipArchive(t, "ja-JP/#content#language-master#en#a.xml")},
	}
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), archives)

	assert.True(t, out.Success)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "broken.zip")
	require.Len(t, out.Archives, 2)
	assert.False(t, out.Archives[0].Readable)
	assert.NotEmpty(t, out.Archives[0].Error)
	assert.True(t, out.Archives[1].Readable)
	assert.Equal(t, 1, out.Archives[1].Links)
}

func TestProcess_NothingReadable(t *testing.T) {
	archives := []Archive{{Name: "empty", Data: nil}}
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), archives)

	assert.False(t, out.Success)
	assert.Equal(t, []string{
		`archive "empty" unreadable: empty archive: unrecognised archive format`,
		"no archive could be read",
	}, out.Warnings)
}

func TestProcess_NoArchives(t *testing.T) {
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), nil)
	assert.False(t, out.Success)
	assert.Equal(t, []string{"no archives supplied"}, out.Warnings)
	assert.Equal(t, 0, out.Links.Len())
}

func TestProcess_LocalesInFirstSeenOrder(t *testing.T) {
	data := tgzArchive(t,
		"ja-JP/#content#language-master#en#a.xml",
		"ko-KR/#content#language-master#en#a.xml",
		"ja-JP/#content#language-master#en#b.xml",
	)
	out := NewAggregator(testMapping(), Options{}).Process(testContext(t), []Archive{{Name: "A.tgz", Data: data}})

	assert.Equal(t, []string{"ja", "ko"}, out.Links.Locales())
	assert.Equal(t, 2, out.Links.Count("ja"))
	assert.Equal(t, 1, out.Links.Count("ko"))
}

func TestProcess_FailedEntries(t *testing.T) {
	data := zipArchive(t,
		"ko-KR/#content#language-master#de#a.xml",
		"ko-KR/#content#language-master#en#b.json",
		"ko-KR/#content#language-master#en#c.xml",
	)
	quiet := NewAggregator(testMapping(), Options{}).Process(testContext(t), []Archive{{Name: "A", Data: data}})
	assert.Equal(t, 2, quiet.Failed)
	assert.Empty(t, quiet.Warnings)

	verbose := NewAggregator(testMapping(), Options{Verbose: true}).Process(testContext(t), []Archive{{Name: "A", Data: data}})
	assert.Equal(t, 2, verbose.Failed)
	assert.Len(t, verbose.Warnings, 2)
	assert.Equal(t, quiet.Links.Links("ko"), verbose.Links.Links("ko"))
}

func TestProcess_Exclude(t *testing.T) {
	filter, err := NewEntryFilter([]string{"**/__MACOSX/**"})
	require.NoError(t, err)
	data := zipArchive(t,
		"job/__MACOSX/ko-KR/#content#language-master#en#a.xml",
		"job/ko-KR/#content#language-master#en#a.xml",
	)
	out := NewAggregator(testMapping(), Options{Exclude: filter}).Process(testContext(t), []Archive{{Name: "A", Data: data}})

	assert.Equal(t, 1, out.Excluded)
	assert.Equal(t, 1, out.Links.Len())
	assert.Equal(t, 0, out.Duplicates)
}

func TestProcess_Idempotent(t *testing.T) {
	archives := []Archive{
		{Name: "A", Data: zipArchive(t,
			"ko-KR/#content#language-master#en#a.xml",
			"ja-JP/#content#language-master#en#a.xml",
			"ko-KR/notes.txt",
			"ko-KR/#content#other#b.xml",
		)},
		{Name: "B", Data: tgzArchive(t, "ko-KR/#content#language-master#en#a.xml")},
		{Name: "C", Data: []byte("not an archive")},
	}
	agg := NewAggregator(testMapping(), Options{})
	first := agg.Process(testContext(t), archives)
	second := agg.Process(testContext(t), archives)

	assert.Equal(t, first.Links.Locales(), second.Links.Locales())
	for _, code := range first.Links.Locales() {
		assert.Equal(t, first.Links.Links(code), second.Links.Links(code))
	}
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Success, second.Success)
	assert.Equal(t, first.Examined, second.Examined)
	assert.Equal(t, first.Failed, second.Failed)
	assert.Equal(t, first.Skipped, second.Skipped)
	assert.Equal(t, first.Excluded, second.Excluded)
	assert.Equal(t, first.Duplicates, second.Duplicates)
	assert.Equal(t, first.Archives, second.Archives)

	assert.Equal(t, 5, first.Examined)
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, 1, first.Duplicates)
}

func TestProcess_WorkersMatchSequential(t *testing.T) {
	var archives []Archive
	for i := range 8 {
		archives = append(archives, Archive{
			Name: fmt.Sprintf("batch-%d.zip", i),
			Data: zipArchive(t,
				fmt.Sprintf("ko-KR/#content#language-master#en#page-%d.xml", i),
				"ko-KR/#content#language-master#en#shared.xml",
			),
		})
	}
	seq := NewAggregator(testMapping(), Options{Workers: 1}).Process(testContext(t), archives)
	par := NewAggregator(testMapping(), Options{Workers: 4}).Process(testContext(t), archives)

	assert.Equal(t, seq.Links.Links("ko"), par.Links.Links("ko"))
	assert.Equal(t, seq.Warnings, par.Warnings)
	assert.Equal(t, seq.Archives, par.Archives)

	shared, ok := linkAt(par.Links, "ko", "content/language-master/ko/shared.html")
	require.True(t, ok)
	assert.Equal(t, "batch-7.zip", shared.Source)
}
