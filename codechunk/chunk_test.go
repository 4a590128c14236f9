package codechunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSignature(t *testing.T) {
	assert.Equal(t, "add(a int, b int)", NormalizeSignature("add( a  int,  b int, )"))
}

func TestSignatureHashStable(t *testing.T) {
	a := SignatureHash("Add(a int, b int) int")
	b := SignatureHash("  Add( a int,  b int )  int ")
	assert.Equal(t, a, b)
}

func TestSignatureHashStripsDefaultsAndAttrs(t *testing.T) {
	a := SignatureHash("fn(a, b)")
	b := SignatureHash("@deprecated fn(a, b=5)")
	assert.Equal(t, a, b)
}

func TestContentHashWhitespaceInsensitive(t *testing.T) {
	a := ContentHash("func foo() {\n\treturn\n}")
	b := ContentHash("func foo() { return }")
	assert.Equal(t, a, b)
}

func TestParamCount(t *testing.T) {
	assert.Equal(t, 0, ParamCount("noop()"))
	assert.Equal(t, 2, ParamCount("add(a int, b int)"))
	assert.Equal(t, 3, ParamCount("f(a map[string]int, b []int, c func(x, y int) int)"))
	assert.Equal(t, 0, ParamCount("noParens"))
}

func TestChunkIdentity(t *testing.T) {
	c1 := Chunk{Path: "a.py", QualifiedName: "foo", Language: "python"}
	c2 := Chunk{Path: "a.py", QualifiedName: "foo", Language: "python"}
	c3 := Chunk{Path: "a.py", QualifiedName: "bar", Language: "python"}
	assert.Equal(t, c1.Identity(), c2.Identity())
	assert.NotEqual(t, c1.Identity(), c3.Identity())
}
