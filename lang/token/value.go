package token

// Value carries the decoded payload of a scanned token alongside its raw
// source text and starting position. Only the fields relevant to Tok are
// populated; the rest are zero.
type Value struct {
	Raw string // exact source text of the token
	Pos Pos

	Int    int64
	Float  float64
	String string

	// Suffix is set when a numeric literal carries an explicit type suffix
	// (e.g. 42u64), one of the SUFFIX_* tokens, or ILLEGAL if none.
	Suffix Token
}
