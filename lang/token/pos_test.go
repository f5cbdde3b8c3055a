package token

import "testing"

func TestFileSetPosition(t *testing.T) {
	fset := NewFileSet()
	f0 := fset.AddFile("a.orus", -1, 10)
	f1 := fset.AddFile("b.orus", -1, 10)

	// byte offsets:  0 1 2 3  4 5 6 7 8 9
	// content:       a b c \n e f g h i \n
	f0.AddLine(3)
	f0.AddLine(9)

	cases := []struct {
		pos      Pos
		wantLine int
		wantCol  int
		wantFile string
	}{
		{f0.Pos(0), 1, 1, "a.orus"},
		{f0.Pos(2), 1, 3, "a.orus"},
		{f0.Pos(4), 2, 1, "a.orus"},
		{f0.Pos(9), 2, 6, "a.orus"},
		{f1.Pos(0), 1, 1, "b.orus"},
	}
	for _, c := range cases {
		got := fset.Position(c.pos)
		if got.Line != c.wantLine || got.Column != c.wantCol || got.Filename != c.wantFile {
			t.Errorf("Position(%d) = %+v, want line=%d col=%d file=%s", c.pos, got, c.wantLine, c.wantCol, c.wantFile)
		}
	}
}

func TestFileSetDistinctBases(t *testing.T) {
	fset := NewFileSet()
	f0 := fset.AddFile("a.orus", -1, 5)
	f1 := fset.AddFile("b.orus", -1, 5)

	if fset.File(f0.Pos(0)) != f0 {
		t.Fatal("expected f0.Pos(0) to resolve to f0")
	}
	if fset.File(f1.Pos(0)) != f1 {
		t.Fatal("expected f1.Pos(0) to resolve to f1")
	}
}

func TestPositionString(t *testing.T) {
	p := Position{Filename: "x.orus", Line: 4, Column: 2}
	if got, want := p.String(), "x.orus:4:2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (Position{}).String(), "-"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
