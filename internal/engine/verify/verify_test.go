// # internal/engine/verify/verify_test.go
package verify

import (
	"testing"

	"nekoscript/internal/core/errors"
	"nekoscript/internal/engine/transpile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspiledProgramParses(t *testing.T) {
	src := `fonction saluer(nom) {
  si (nom est égal à "Zoé") {
    neko = ("Salut " plus nom);
  } sinon {
    neko = ("Bonjour");
  }
  nekRetour(nom);
}
saluer("Zoé");
compteneko = 10 diviser 2;
pour (i de 1 à 3) {
  neko = (i);
}`
	rep, err := New().JavaScript(transpile.New().Source(src))
	require.NoError(t, err)
	assert.True(t, rep.Valid, "%v", rep.Errors)
	assert.Empty(t, rep.Errors)
}

func TestUnbalancedOutputReported(t *testing.T) {
	rep, err := New().JavaScript(transpile.New().Source("fonction f() {\n  neko = (\"x\");"))
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.NotEmpty(t, rep.Errors)
}

func TestHTMLAndCSS(t *testing.T) {
	v := New()
	rep, err := v.Verify(HTML, []byte("<!DOCTYPE html><html><body><p>ok</p></body></html>"))
	require.NoError(t, err)
	assert.True(t, rep.Valid)

	rep, err = v.Verify(CSS, []byte("body { color: red; }"))
	require.NoError(t, err)
	assert.True(t, rep.Valid)
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := New().Verify(Language("cobol"), []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	assert.Equal(t, []Language{CSS, HTML, JavaScript}, New().Languages())
}

func TestPoolReturnsParsers(t *testing.T) {
	v := New()
	_, err := v.JavaScript("neko(1);")
	require.NoError(t, err)
	assert.Equal(t, 0, v.pools[JavaScript].Leased())
}
