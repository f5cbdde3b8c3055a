package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus/lang/scanner"
	"github.com/orus-lang/orus/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("test.orus", -1, len(src))

	var errs []string
	var sc scanner.Scanner
	sc.Init(f, []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	})

	var toks []token.Token
	var vals []token.Value
	for {
		var v token.Value
		tok := sc.Scan(&v)
		toks = append(toks, tok)
		vals = append(vals, v)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs, "unexpected scanner errors: %v", errs)
	return toks, vals
}

func TestScanIndentation(t *testing.T) {
	src := "fn main():\n    let x = 1\n    let y = 2\nprint(x)\n"
	toks, _ := scanAll(t, src)

	require.Equal(t, token.FN, toks[0])
	require.Equal(t, token.IDENT, toks[1])
	require.Equal(t, token.LPAREN, toks[2])
	require.Equal(t, token.RPAREN, toks[3])
	require.Equal(t, token.COLON, toks[4])
	require.Equal(t, token.NEWLINE, toks[5])
	require.Equal(t, token.INDENT, toks[6])
	require.Equal(t, token.LET, toks[7])

	require.Contains(t, toks, token.DEDENT)
	require.Equal(t, token.EOF, toks[len(toks)-1])
}

func TestScanNumbers(t *testing.T) {
	toks, vals := scanAll(t, "42 3.14 0xFF 1_000 10u64 2.5f64\n")
	require.Equal(t, token.INT, toks[0])
	require.Equal(t, int64(42), vals[0].Int)

	require.Equal(t, token.FLOAT, toks[1])
	require.InDelta(t, 3.14, vals[1].Float, 1e-9)

	require.Equal(t, token.INT, toks[2])
	require.Equal(t, int64(255), vals[2].Int)

	require.Equal(t, token.INT, toks[3])
	require.Equal(t, int64(1000), vals[3].Int)

	require.Equal(t, token.INT, toks[4])
	require.Equal(t, token.SUFFIX_U64, vals[4].Suffix)

	require.Equal(t, token.FLOAT, toks[5])
	require.Equal(t, token.SUFFIX_F64, vals[5].Suffix)
}

func TestScanString(t *testing.T) {
	toks, vals := scanAll(t, `"hello\nworld"`+"\n")
	require.Equal(t, token.STRING, toks[0])
	require.Equal(t, "hello\nworld", vals[0].String)
}

func TestScanOperators(t *testing.T) {
	toks, _ := scanAll(t, "+= -> <= == != .. ::\n")
	want := []token.Token{
		token.PLUSEQ, token.ARROW, token.LE, token.EQEQ, token.BANGEQ,
		token.DOTDOT, token.COLONCOLON, token.NEWLINE, token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanInconsistentIndent(t *testing.T) {
	fset := token.NewFileSet()
	src := "fn f():\n  let x = 1\n\tlet y = 2\n"
	f := fset.AddFile("bad.orus", -1, len(src))

	var errs []string
	var sc scanner.Scanner
	sc.Init(f, []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	var v token.Value
	for {
		tok := sc.Scan(&v)
		if tok == token.EOF {
			break
		}
	}
	require.NotEmpty(t, errs)
}
