package diag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus/lang/token"
)

func TestListDedup(t *testing.T) {
	var l List
	pos := token.Position{Filename: "a.orus", Line: 1, Column: 1}
	l.Add(Diagnostic{Code: "E2004", Severity: Error, Pos: pos, Message: "mixed arithmetic"})
	l.Add(Diagnostic{Code: "E2004", Severity: Error, Pos: pos, Message: "mixed arithmetic"})
	require.Equal(t, 1, l.Len())

	l.Add(Diagnostic{Code: "E2004", Severity: Error, Pos: pos, Message: "different message"})
	require.Equal(t, 2, l.Len())
}

func TestListErr(t *testing.T) {
	var l List
	require.NoError(t, l.Err())

	l.Add(Diagnostic{Severity: Warning, Message: "just a warning"})
	require.NoError(t, l.Err())

	l.Add(Diagnostic{Severity: Error, Message: "boom"})
	err := l.Err()
	require.Error(t, err)

	type unwrapper interface{ Unwrap() []error }
	uw, ok := err.(unwrapper)
	require.True(t, ok)
	require.Len(t, uw.Unwrap(), 2)
}

func TestListSort(t *testing.T) {
	var l List
	l.Add(Diagnostic{Message: "b", Pos: token.Position{Filename: "a", Line: 2, Column: 1}})
	l.Add(Diagnostic{Message: "a", Pos: token.Position{Filename: "a", Line: 1, Column: 1}})
	l.Sort()
	require.Equal(t, "a", l.All()[0].Message)
	require.Equal(t, "b", l.All()[1].Message)
}
