package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d missing a string representation", tok)
	}
}

func TestLookupIdent(t *testing.T) {
	require.Equal(t, FN, LookupIdent("fn"))
	require.Equal(t, WHILE, LookupIdent("while"))
	require.Equal(t, IDENT, LookupIdent("fnord"))
	require.Equal(t, IDENT, LookupIdent(""))
}

func TestLookupNumberSuffix(t *testing.T) {
	cases := map[string]Token{
		"i32": SUFFIX_I32,
		"i64": SUFFIX_I64,
		"u32": SUFFIX_U32,
		"u64": SUFFIX_U64,
		"f64": SUFFIX_F64,
		"u":   SUFFIX_U,
		"x":   ILLEGAL,
		"":    ILLEGAL,
	}
	for in, want := range cases {
		require.Equal(t, want, LookupNumberSuffix(in), "suffix %q", in)
	}
}

func TestIsKeyword(t *testing.T) {
	require.True(t, FN.IsKeyword())
	require.True(t, WHILE.IsKeyword())
	require.False(t, IDENT.IsKeyword())
	require.False(t, PLUS.IsKeyword())
}

func TestGoString(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "end of file", EOF.GoString())
}
