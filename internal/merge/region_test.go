package merge

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treemerge/internal/backend"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestFrontMatter_Detect(t *testing.T) {
	got := FrontMatter{}.Detect(lines("---\ntitle: x\n---\nbody\n"))
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, 1, r.StartLine)
	assert.Equal(t, 3, r.EndLine)
	assert.Equal(t, "title: x\n", r.Content)
	assert.Equal(t, &Delimiters{Open: "---", Close: "---"}, r.Delimiters)
	assert.Equal(t, "yaml", r.Metadata["format"])

	toml := FrontMatter{}.Detect(lines("+++\na = 1\n+++\n"))
	require.Len(t, toml, 1)
	assert.Equal(t, "toml", toml[0].Metadata["format"])

	assert.Empty(t, FrontMatter{}.Detect(lines("---\nnever closed\n")))
	assert.Empty(t, FrontMatter{}.Detect(lines("text\n---\na\n---\n")), "front matter must start on line 1")
}

func TestFenced_DetectFiltersLanguages(t *testing.T) {
	src := lines("intro\n```yaml\na: 1\n```\n~~~go\nx\n~~~\n```\n")

	all := Fenced{}.Detect(src)
	require.Len(t, all, 2, "the trailing unclosed fence is ignored")
	assert.Equal(t, "yaml", all[0].Metadata["language"])
	assert.Equal(t, 2, all[0].StartLine)
	assert.Equal(t, 4, all[0].EndLine)
	assert.Equal(t, "go", all[1].Metadata["language"])

	onlyGo := Fenced{Languages: []string{"GO"}}.Detect(src)
	require.Len(t, onlyGo, 1)
	assert.Equal(t, "x\n", onlyGo[0].Content)
}

func TestFenced_LongerFenceHoldsShorterOnes(t *testing.T) {
	got := Fenced{}.Detect(lines("````md\n```yaml\na: 1\n```\n````\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "```yaml\na: 1\n```\n", got[0].Content)
}

func TestDelimited_Detect(t *testing.T) {
	d := Delimited{
		Name:  "sql",
		Open:  regexp.MustCompile(`^-- begin sql`),
		Close: regexp.MustCompile(`^-- end sql`),
	}
	got := d.Detect(lines("a\n-- begin sql\nSELECT 1;\n-- end sql\nb\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "sql", got[0].Kind)
	assert.Equal(t, "SELECT 1;\n", got[0].Content)
	assert.Empty(t, Delimited{}.Detect(lines("a\n")))
}

func TestRegions_PlaceholderRoundTrip(t *testing.T) {
	e := mustEngine(indentParser{}, Options{Regions: []RegionConfig{
		{Detector: FrontMatter{}},
		{Detector: Fenced{}},
	}})

	for _, src := range []string{
		"---\ntitle: x\n---\nbody\n```sh\necho hi\n```\ntail\n",
		"```\n```\n",
		"---\n---\nno trailing newline",
		"plain\n",
	} {
		x, err := e.extractRegions(SideDestination, src)
		require.NoError(t, err)
		if strings.Contains(src, "```") || strings.HasPrefix(src, "---") {
			assert.Contains(t, x.text, DefaultPlaceholderPrefix)
		}

		back, _, err := e.restoreRegions(x.text, x, x)
		require.NoError(t, err)
		assert.Equal(t, src, back)
	}
}

func TestRegions_OverlapsKeepEarliest(t *testing.T) {
	e := mustEngine(indentParser{}, Options{Regions: []RegionConfig{
		{Detector: Fenced{}},
		{Detector: Delimited{Open: regexp.MustCompile("^a$"), Close: regexp.MustCompile("^c$")}},
	}})

	x, err := e.extractRegions(SideTemplate, "a\n```\nb\n```\nc\n")
	require.NoError(t, err)
	require.Len(t, x.regions, 1)
	assert.Equal(t, "delimited", x.regions[0].Kind)
	assert.Equal(t, DefaultPlaceholderPrefix+"0"+PlaceholderSuffix+"\n", x.text)
}

func TestMerge_PlaceholderCollision(t *testing.T) {
	e := mustEngine(backend.NewMarkdown(), Options{Regions: []RegionConfig{{Detector: Fenced{}}}})

	dest := "# Doc\n\n" + DefaultPlaceholderPrefix + "7>>>\n"
	_, err := e.Merge("# Doc\n", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlaceholderConflict)

	var pce *PlaceholderCollisionError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, SideDestination, pce.Side)
	assert.Equal(t, DefaultPlaceholderPrefix, pce.Placeholder)

	custom := mustEngine(backend.NewMarkdown(), Options{
		Regions:           []RegionConfig{{Detector: Fenced{}}},
		RegionPlaceholder: "@@R",
	})
	got, err := custom.Merge("# Doc\n", dest)
	require.NoError(t, err, "a custom prefix avoids the collision")
	assert.Equal(t, dest, got)
}

func TestMerge_RegionWithoutParserKeepsDestination(t *testing.T) {
	e := mustEngine(backend.NewMarkdown(), Options{
		Preference: PreferTemplate(),
		Regions:    []RegionConfig{{Detector: Fenced{}}},
	})

	tmpl := "# Doc\n\n```yaml\na: 1\n```\n"
	dest := "# Doc\n\n```yaml\na: 2\n```\n"
	res, err := e.MergeResult(tmpl, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Content())
	require.Len(t, res.Regions, 1)
	assert.Equal(t, DecisionKeptDestination, res.Regions[0].Decision)
}

func TestMerge_RegionSubEngine(t *testing.T) {
	e := mustEngine(backend.NewMarkdown(), Options{
		AddTemplateOnly: true,
		Regions: []RegionConfig{
			{Detector: Fenced{Languages: []string{"yaml"}}, Parser: backend.NewYAML()},
		},
	})

	tmpl := "# Doc\n\n```yaml\na: 1\nb: 2\n```\n"
	dest := "# Doc\n\n```yaml\na: 9\n```\n"
	res, err := e.MergeResult(tmpl, dest)
	require.NoError(t, err)
	assert.Equal(t, "# Doc\n\n```yaml\na: 9\nb: 2\n```\n", res.Content())
	require.Len(t, res.Regions, 1)
	assert.Equal(t, DecisionRecursive, res.Regions[0].Decision)
	assert.Equal(t, "fenced", res.Regions[0].Kind)
}

func TestMerge_FrozenRegionIsVerbatim(t *testing.T) {
	e := mustEngine(backend.NewMarkdown(), Options{
		Preference: PreferTemplate(),
		Regions: []RegionConfig{
			{Detector: Fenced{}, Parser: backend.NewYAML()},
		},
	})

	tmpl := "```yaml\na: 2\n```\n"
	dest := "<!-- treemerge:freeze -->\n```yaml\na: 1\n```\n<!-- treemerge:unfreeze -->\n"
	res, err := e.MergeResult(tmpl, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Content())
	require.Len(t, res.Regions, 1)
	assert.Equal(t, DecisionFrozen, res.Regions[0].Decision)
}

func TestNew_RegionDepthLimit(t *testing.T) {
	regions := []RegionConfig{{
		Detector: Fenced{Languages: []string{"md"}},
		Parser:   backend.NewMarkdown(),
		Nested: []RegionConfig{
			{Detector: Fenced{Languages: []string{"yaml"}}, Parser: backend.NewYAML()},
		},
	}}

	unbounded := mustEngine(backend.NewMarkdown(), Options{Regions: regions})
	require.NotNil(t, unbounded.subs[0])
	assert.NotNil(t, unbounded.subs[0].subs[0])

	limited := mustEngine(backend.NewMarkdown(), Options{Regions: regions, MaxRegionDepth: 1})
	require.NotNil(t, limited.subs[0])
	assert.Nil(t, limited.subs[0].subs[0], "regions past the depth limit are kept verbatim")
}

func TestMerge_UnclosedFreezeInsideVerbatimRegion(t *testing.T) {
	e := mustEngine(backend.NewMarkdown(), Options{Regions: []RegionConfig{{Detector: Fenced{}}}})

	dest := "# Doc\n\n```html\n<!-- treemerge:freeze -->\n<p>x</p>\n```\n"
	_, err := e.Merge("# Doc\n", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFreezeStructure)

	var fe *FreezeError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, SideDestination, fe.Side)
}
