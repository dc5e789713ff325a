package merge_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/merge"
)

func TestScenarioA_DestinationOnlyNoAdds(t *testing.T) {
	got, err := merge.Merge(backend.NewText(), "Line A\nLine B\n", "Line A\nLine C\n", merge.Options{
		Preference: merge.PreferDestination(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Line A\nLine C\n", got)
}

func TestScenarioB_AdditionFollowsAnchor(t *testing.T) {
	got, err := merge.Merge(backend.NewText(), "Line A\nLine B\n", "Line A\nLine C\n", merge.Options{
		Preference:      merge.PreferDestination(),
		AddTemplateOnly: true,
	})
	require.NoError(t, err)
	assert.Contains(t, got, "Line C")
	assert.Contains(t, got, "Line B")
	assert.Less(t, strings.Index(got, "Line A"), strings.Index(got, "Line B"))
	assert.Equal(t, "Line A\nLine B\nLine C\n", got)
}

func TestScenarioC_FrozenSpanIgnoresPreference(t *testing.T) {
	dest := "# token:freeze keep\nCUSTOM\n# token:unfreeze\n"
	e, err := merge.New(backend.NewText(), merge.Options{
		Preference:  merge.PreferTemplate(),
		FreezeToken: "token",
	})
	require.NoError(t, err)

	res, err := e.MergeResult("Something else entirely\n", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Content())
	assert.Equal(t, []merge.Decision{merge.DecisionFrozen}, res.Decisions())
}

func TestMerge_DestinationPreservationAndOrder(t *testing.T) {
	tmpl := "one\nthree\nfive\n"
	dest := "zero\none\ntwo\nthree\nfour\n"

	for _, add := range []bool{false, true} {
		got, err := merge.Merge(backend.NewText(), tmpl, dest, merge.Options{AddTemplateOnly: add})
		require.NoError(t, err)

		last := -1
		for _, line := range strings.Split(strings.TrimSuffix(dest, "\n"), "\n") {
			idx := strings.Index(got, line)
			require.GreaterOrEqual(t, idx, 0, "destination line %q dropped", line)
			assert.Greater(t, idx, last, "destination line %q reordered", line)
			last = idx
		}
	}
}

func TestMerge_FreezeAtomicityAcrossPolicies(t *testing.T) {
	tmpl := "# Guide\n\nIntro.\n\n## Setup\n\nTemplate setup.\n"
	frozen := "<!-- treemerge:freeze local notes -->\nHand written.\n\nStill mine.\n<!-- treemerge:unfreeze -->"
	dest := "# Guide\n\nIntro.\n\n## Setup\n\n" + frozen + "\n"

	policies := []merge.Options{
		{Preference: merge.PreferTemplate()},
		{Preference: merge.PreferDestination(), AddTemplateOnly: true},
		{
			Preference: merge.PreferTemplate(),
			NodeTyping: map[string]merge.TypingFunc{"paragraph": func(ast.Node) string { return "prose" }},
		},
	}
	for _, opts := range policies {
		got, err := merge.Merge(backend.NewMarkdown(), tmpl, dest, opts)
		require.NoError(t, err)
		assert.Contains(t, got, frozen)
	}
}

func TestMergeResult_Stats(t *testing.T) {
	res, err := merge.Merge(backend.NewText(), "a\nb\nc\n", "a\nx\nc\n", merge.Options{AddTemplateOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nx\nc\n", res)

	e, err := merge.New(backend.NewText(), merge.Options{AddTemplateOnly: true})
	require.NoError(t, err)
	r, err := e.MergeResult("a\nb\nc\n", "a\nx\nc\n")
	require.NoError(t, err)

	want := map[merge.Decision]int{
		merge.DecisionIdentical:       2,
		merge.DecisionAdded:           1,
		merge.DecisionKeptDestination: 1,
	}
	if diff := cmp.Diff(want, r.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "added=1 identical=2 kept_destination=1", r.Summary())
}

func TestMerge_EmptyInputs(t *testing.T) {
	cases := []struct {
		name, tmpl, dest, want string
		add                    bool
	}{
		{"both empty", "", "", "", false},
		{"empty destination", "a\n", "", "", false},
		{"empty destination adds", "a\n", "", "a\n", true},
		{"empty template", "", "a\n", "a\n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := merge.Merge(backend.NewText(), tc.tmpl, tc.dest, merge.Options{AddTemplateOnly: tc.add})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMerge_YAMLBackendsShareCanonicalKinds(t *testing.T) {
	tmpl := "name: app\nversion: 2\n"
	dest := "name: mine\nversion: 1\nextra: true\n"
	opts := merge.Options{
		Preference: merge.Preference{
			Default: merge.SideDestination,
			ByKind:  map[string]merge.Side{backend.KindYAMLPair: merge.SideTemplate},
		},
	}

	for _, p := range []ast.Parser{backend.NewYAML(), backend.NewGoccyYAML()} {
		t.Run(p.Format().Name, func(t *testing.T) {
			got, err := merge.Merge(p, tmpl, dest, opts)
			require.NoError(t, err)
			assert.Equal(t, "name: app\nversion: 2\nextra: true\n", got)
		})
	}
}

func TestMerge_AddedUnitsKeepBackendLayout(t *testing.T) {
	cases := []struct {
		name       string
		parser     ast.Parser
		tmpl, dest string
		want       string
	}{
		{
			name:   "markdown first child",
			parser: backend.NewMarkdown(),
			tmpl:   "## A\n\nnew\n",
			dest:   "## A\n\nmine\n",
			want:   "## A\n\nmine\n\nnew\n",
		},
		{
			name:   "markdown nested sections",
			parser: backend.NewMarkdown(),
			tmpl:   "# T\n\nintro\n\n## A\n\na body\n\n## B\n\nb body\n",
			dest:   "# T\n\nmy intro\n\n## A\n\nmine\n",
			want:   "# T\n\nmy intro\n\nintro\n\n## A\n\nmine\n\na body\n\n## B\n\nb body\n",
		},
		{
			name:   "yaml nested mapping",
			parser: backend.NewYAML(),
			tmpl:   "server:\n  port: 8080\n  host: x\n",
			dest:   "server:\n  host: y\n\nother: 1\n",
			want:   "server:\n  port: 8080\n  host: y\n\nother: 1\n",
		},
		{
			name:   "yaml leading key",
			parser: backend.NewYAML(),
			tmpl:   "a: 1\nb: 2\n",
			dest:   "b: 3\nc: 4\n",
			want:   "a: 1\nb: 3\nc: 4\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := merge.New(tc.parser, merge.Options{AddTemplateOnly: true})
			require.NoError(t, err)

			once, err := e.Merge(tc.tmpl, tc.dest)
			require.NoError(t, err)
			assert.Equal(t, tc.want, once)

			twice, err := e.Merge(tc.tmpl, once)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "re-merging must not change the result")
		})
	}
}

func TestMerge_AddedFrontMatterStaysOnFirstLine(t *testing.T) {
	e, err := merge.New(backend.NewMarkdown(), merge.Options{
		AddTemplateOnly: true,
		Regions:         []merge.RegionConfig{{Detector: merge.FrontMatter{}, Parser: backend.NewYAML()}},
	})
	require.NoError(t, err)

	tmpl := "---\nt: 1\n---\n# H\n"
	cases := map[string]struct{ dest, want string }{
		"heading first": {"# H\n\nbody\n", "---\nt: 1\n---\n# H\n\nbody\n"},
		"leading blank": {"\n# H\n\nbody\n", "---\nt: 1\n---\n\n# H\n\nbody\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := e.MergeResult(tmpl, tc.dest)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Content())
			require.Len(t, res.Regions, 1)
			assert.Equal(t, merge.DecisionKeptTemplate, res.Regions[0].Decision)

			twice, err := e.MergeResult(tmpl, res.Content())
			require.NoError(t, err)
			assert.Equal(t, tc.want, twice.Content())
			require.Len(t, twice.Regions, 1)
			assert.Equal(t, merge.DecisionRecursive, twice.Regions[0].Decision)
		})
	}
}
