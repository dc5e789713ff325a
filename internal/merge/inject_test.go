package merge_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/merge"
)

const guide = `# Project

Intro.

## Install

Old steps.

### Notes

Note.

## Usage

Use it.
`

func section(pattern string) merge.Predicate {
	return merge.Predicate{Kind: "section", Pattern: regexp.MustCompile(pattern)}
}

func newMarkdownEngine(t *testing.T, opts merge.Options) *merge.Engine {
	t.Helper()
	e, err := merge.New(backend.NewMarkdown(), opts)
	require.NoError(t, err)
	return e
}

func TestInject_ReplaceUpToSameOrShallowerBoundary(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{})

	res, err := e.Inject("## Install\n\nNew steps.\n", guide, merge.Injection{
		Anchor:   section(`^## Install`),
		Boundary: &merge.Predicate{Kind: "section", SameOrShallower: true},
		Position: merge.PositionReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Project\n\nIntro.\n\n## Install\n\nNew steps.\n\n## Usage\n\nUse it.\n", res.Content())
	assert.Equal(t, []merge.Decision{
		merge.DecisionKeptDestination, merge.DecisionReplaced, merge.DecisionKeptDestination,
	}, res.Decisions())
}

func TestInject_ReplaceStopsAtExplicitBoundary(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{})

	res, err := e.Inject("## Install\n\nNew steps.\n", guide, merge.Injection{
		Anchor:   section(`^## Install`),
		Boundary: &merge.Predicate{Kind: "section", Pattern: regexp.MustCompile(`^### Notes`)},
		Position: merge.PositionReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Project\n\nIntro.\n\n## Install\n\nNew steps.\n\n### Notes\n\nNote.\n\n## Usage\n\nUse it.\n", res.Content())
}

func TestInject_Positions(t *testing.T) {
	cases := []struct {
		name     string
		anchor   merge.Predicate
		position merge.Position
		fragment string
		want     string
	}{
		{
			name:     "before",
			anchor:   section(`^## Usage`),
			position: merge.PositionBefore,
			fragment: "## Changelog\n\nNone.\n\n",
			want:     "# Project\n\nIntro.\n\n## Install\n\nOld steps.\n\n### Notes\n\nNote.\n\n## Changelog\n\nNone.\n\n## Usage\n\nUse it.\n",
		},
		{
			name:     "after",
			anchor:   merge.Predicate{Kind: "paragraph", Pattern: regexp.MustCompile(`^Intro`)},
			position: merge.PositionAfter,
			fragment: "More intro.\n",
			want:     "# Project\n\nIntro.\nMore intro.\n\n## Install\n\nOld steps.\n\n### Notes\n\nNote.\n\n## Usage\n\nUse it.\n",
		},
		{
			name:     "first child",
			anchor:   section(`^## Install`),
			position: merge.PositionFirstChild,
			fragment: "Prereqs.\n\n",
			want:     "# Project\n\nIntro.\n\n## Install\n\nPrereqs.\n\nOld steps.\n\n### Notes\n\nNote.\n\n## Usage\n\nUse it.\n",
		},
		{
			name:     "last child",
			anchor:   section(`^## Install`),
			position: merge.PositionLastChild,
			fragment: "\nMore.\n",
			want:     "# Project\n\nIntro.\n\n## Install\n\nOld steps.\n\n### Notes\n\nNote.\n\nMore.\n\n## Usage\n\nUse it.\n",
		},
	}
	e := newMarkdownEngine(t, merge.Options{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Inject(tc.fragment, guide, merge.Injection{Anchor: tc.anchor, Position: tc.position})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Content())
			assert.Contains(t, res.Decisions(), merge.DecisionAdded)
		})
	}
}

func TestInject_DepthConstraints(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{})

	res, err := e.Inject("Top note.\n", guide, merge.Injection{
		Anchor:   merge.Predicate{Kind: "paragraph", MinDepth: 4},
		Position: merge.PositionAfter,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Content(), "Note.\nTop note.\n")
}

func TestInject_WhenMissing(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{})
	missing := section(`^## Nowhere`)

	res, err := e.Inject("## Extra\n", guide, merge.Injection{Anchor: missing, Position: merge.PositionReplace, WhenMissing: merge.MissingSkip})
	require.NoError(t, err)
	assert.Equal(t, guide, res.Content())

	res, err = e.Inject("## Extra\n", guide, merge.Injection{Anchor: missing, Position: merge.PositionReplace, WhenMissing: merge.MissingAdd})
	require.NoError(t, err)
	assert.Equal(t, guide+"## Extra\n", res.Content())
	assert.Equal(t, []merge.Decision{merge.DecisionKeptDestination, merge.DecisionAppended}, res.Decisions())

	_, err = e.Inject("## Extra\n", guide, merge.Injection{Anchor: missing, Position: merge.PositionReplace, WhenMissing: merge.MissingError})
	assert.ErrorIs(t, err, merge.ErrAnchorNotFound)
}

func TestInject_MergeMode(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{AddTemplateOnly: true})

	res, err := e.Inject("## Install\n\nOld steps.\n\nExtra step.\n", guide, merge.Injection{
		Anchor:   section(`^## Install`),
		Position: merge.PositionReplace,
		Mode:     merge.ModeMerge,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"# Project\n\nIntro.\n\n## Install\n\nOld steps.\n\nExtra step.\n\n### Notes\n\nNote.\n\n## Usage\n\nUse it.\n",
		res.Content())
	assert.Contains(t, res.Decisions(), merge.DecisionMerged)
}

func TestInject_FrozenContentSurvivesWholesaleReplace(t *testing.T) {
	dest := "# Doc\n\n## Install\n\n<!-- treemerge:freeze -->\nPinned.\n<!-- treemerge:unfreeze -->\n\n## Usage\n\nUse it.\n"
	e := newMarkdownEngine(t, merge.Options{})

	res, err := e.Inject("## Install\n\nNew.\n", dest, merge.Injection{
		Anchor:   section(`^## Install`),
		Position: merge.PositionReplace,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Content(), "<!-- treemerge:freeze -->\nPinned.\n<!-- treemerge:unfreeze -->")
	assert.NotContains(t, res.Content(), "New.")
}

func TestInject_AnchorsInsideFreezeBlocksAreIgnored(t *testing.T) {
	dest := "<!-- treemerge:freeze -->\nTarget.\n<!-- treemerge:unfreeze -->\n\nTarget.\n"
	e := newMarkdownEngine(t, merge.Options{})

	res, err := e.Inject("After.\n", dest, merge.Injection{
		Anchor:   merge.Predicate{Kind: "paragraph", Pattern: regexp.MustCompile(`^Target`)},
		Position: merge.PositionAfter,
	})
	require.NoError(t, err)
	assert.Equal(t, dest+"After.\n", res.Content())
}

func TestInject_InvalidConfiguration(t *testing.T) {
	e := newMarkdownEngine(t, merge.Options{})

	cases := map[string]merge.Injection{
		"position":  {Anchor: section(`x`), Position: "sideways"},
		"policy":    {Anchor: section(`x`), Position: merge.PositionAfter, WhenMissing: "shrug"},
		"mode":      {Anchor: section(`x`), Position: merge.PositionReplace, Mode: "blend"},
		"boundary":  {Anchor: section(`x`), Position: merge.PositionAfter, Boundary: &merge.Predicate{Kind: "section"}},
		"depth":     {Anchor: merge.Predicate{MinDepth: 3, MaxDepth: 2}, Position: merge.PositionAfter},
		"neg depth": {Anchor: merge.Predicate{MinDepth: -1}, Position: merge.PositionAfter},
	}
	for name, inj := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Inject("x\n", guide, inj)
			assert.ErrorIs(t, err, merge.ErrInvalidConfig)
		})
	}
}
