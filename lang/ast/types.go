package ast

// TypeID identifies one of Orus's primitive types. The resolver assigns
// one to every expression node; zero (TypeUnresolved) means the resolver
// has not yet visited that node.
type TypeID uint8

const (
	TypeUnresolved TypeID = iota
	TypeI32
	TypeI64
	TypeU32
	TypeU64
	TypeF64
	TypeBool
	TypeString
	TypeArray
	TypeStruct
	TypeEnum
	TypeNil
	TypeFn
	TypeVoid
)

func (t TypeID) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeStruct:
		return "struct"
	case TypeEnum:
		return "enum"
	case TypeNil:
		return "nil"
	case TypeFn:
		return "fn"
	case TypeVoid:
		return "void"
	default:
		return "<unresolved>"
	}
}

// IsNumeric reports whether t is one of the five numeric kinds that
// participate in saturating arithmetic and casts.
func (t TypeID) IsNumeric() bool {
	switch t {
	case TypeI32, TypeI64, TypeU32, TypeU64, TypeF64:
		return true
	}
	return false
}

// IsInteger reports whether t is one of the four fixed-width integer
// kinds (as opposed to f64).
func (t TypeID) IsInteger() bool {
	switch t {
	case TypeI32, TypeI64, TypeU32, TypeU64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is one of the two unsigned integer kinds.
func (t TypeID) IsUnsigned() bool { return t == TypeU32 || t == TypeU64 }

// CastAllowed reports whether an explicit `as` cast from one numeric kind
// to another is permitted. Numeric-to-numeric casts are always allowed
// (they saturate or truncate per spec.md's numeric conversion rules);
// casts into or out of non-numeric types are never implicit and only
// bool<->string and numeric<->string go through explicit stdlib-style
// conversions handled by the resolver, not the `as` operator.
func CastAllowed(from, to TypeID) bool {
	return from.IsNumeric() && to.IsNumeric()
}

// ConstValue holds the folded value of a constant expression, tagged by
// Type. The optimizer writes this into a Node's ConstValue field when it
// proves an expression is compile-time constant.
type ConstValue struct {
	Type  TypeID
	I     int64
	U     uint64
	F     float64
	B     bool
	S     string
}
