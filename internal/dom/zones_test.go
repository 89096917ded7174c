package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZonesContains(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<div class="artdeco-modal"><div><p id="in-modal">text</p></div></div>
<div role="alertdialog"><span id="in-alert">text</span></div>
<aside><p id="in-aside">text</p></aside>
<section><p id="free">text</p></section>
</body></html>`

	doc, err := ParseString(page, "")
	require.NoError(t, err)

	zones := NewZones(DefaultRules...)
	require.Empty(t, zones.Invalid())

	require.True(t, zones.Contains(findByID(t, doc, "in-modal")))
	require.True(t, zones.Contains(findByID(t, doc, "in-alert")))
	require.True(t, zones.Contains(findByID(t, doc, "in-aside")))
	require.False(t, zones.Contains(findByID(t, doc, "free")))
	require.False(t, zones.Contains(nil))
}

func TestZonesInvalidRuleFailsOpen(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<html><body><footer><p id="in-footer">x</p></footer><p id="free">y</p></body></html>`, "")
	require.NoError(t, err)

	zones := NewZones(
		Rule{Name: "broken", Selector: "p[[["},
		Rule{Name: "empty", Selector: "  "},
		Rule{Name: "footer", Selector: "footer"},
	)

	require.False(t, zones.Contains(findByID(t, doc, "free")))
	require.True(t, zones.Contains(findByID(t, doc, "in-footer")))

	statuses := zones.Describe()
	require.Len(t, statuses, 3)
	require.False(t, statuses[0].Active)
	require.NotEmpty(t, statuses[0].Error)
	require.False(t, statuses[1].Active)
	require.True(t, statuses[2].Active)
	require.Len(t, zones.Invalid(), 2)
}

func TestRulesFromMapIsOrdered(t *testing.T) {
	t.Parallel()

	rules := RulesFromMap(map[string]string{"b": ".b", "a": ".a", "c": ".c"})
	require.Equal(t, []Rule{{Name: "a", Selector: ".a"}, {Name: "b", Selector: ".b"}, {Name: "c", Selector: ".c"}}, rules)
}

func TestNilZones(t *testing.T) {
	t.Parallel()

	var zones *Zones
	require.Nil(t, zones.Describe())
	doc, err := ParseString(`<html><body><p id="p">x</p></body></html>`, "")
	require.NoError(t, err)
	require.False(t, zones.Contains(findByID(t, doc, "p")))
}
