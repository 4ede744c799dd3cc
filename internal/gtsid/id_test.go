package gtsid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeID(t *testing.T) {
	id, err := Parse("gts.x.pkg.ns.type.v1~")
	require.NoError(t, err)
	assert.True(t, id.IsType())
	assert.False(t, id.IsInstance())
	assert.Len(t, id.Segments, 1)
	assert.Equal(t, 1, id.Segments[0].Major)
}

func TestParseChainedTypeID(t *testing.T) {
	id, err := Parse("gts.a.b.c.d.v1~e.f.g.h.v2~")
	require.NoError(t, err)
	assert.True(t, id.IsType())
	require.Len(t, id.Segments, 2)
	assert.Equal(t, "gts.a.b.c.d.v1~", id.Parent())
}

func TestParseInstanceID(t *testing.T) {
	id, err := Parse("gts.x.pkg.ns.type.v1~instance.field.x.y.v1.0")
	require.NoError(t, err)
	assert.False(t, id.IsType())
	assert.True(t, id.IsInstance())
}

func TestSingleSegmentInstanceInvalid(t *testing.T) {
	// A single segment carrying a minor version but no `~` chain still
	// parses as an id; IsInstance must reject it because len(Segments) < 2.
	id, err := Parse("gts.x.pkg.ns.type.v1.0")
	require.NoError(t, err)
	assert.False(t, id.IsInstance())
}

func TestLeadingZeroMajorRejected(t *testing.T) {
	_, err := Parse("gts.x.pkg.ns.type.v01~")
	assert.Error(t, err)
}

func TestMustBeLowerCase(t *testing.T) {
	_, err := Parse("gts.X.pkg.ns.type.v1~")
	assert.Error(t, err)
}

func TestURIPrefixStripped(t *testing.T) {
	id, err := Parse("gts://gts.x.pkg.ns.type.v1~")
	require.NoError(t, err)
	assert.Equal(t, "gts.x.pkg.ns.type.v1~", id.Canonical)
}

func TestRoundTrip(t *testing.T) {
	text := "gts.x.core.events.type.v1~"
	assert.Equal(t, Validate(text), Validate(text))
	id, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, id.Canonical)
}

func TestUUIDDeterministicAndInjective(t *testing.T) {
	a, err := UUIDFor("gts.x.core.events.type.v1~")
	require.NoError(t, err)
	b, err := UUIDFor("gts.x.core.events.type.v1~")
	require.NoError(t, err)
	c, err := UUIDFor("gts.x.core.events.type.v2~")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestKnownUUIDFixture(t *testing.T) {
	u, err := UUIDFor("gts.x.test5.events.type.v1~")
	require.NoError(t, err)
	assert.Equal(t, "de567dcc-10ef-597d-8f82-3c999ed9b979", u.String())
}
