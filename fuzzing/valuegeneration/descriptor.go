package valuegeneration

import (
	"fmt"
)

// TypeKind identifies the semantic category of a parameter type the Catalog knows how to synthesize values for.
// It is a closed enumeration: the ValueGenerator matches exhaustively over it, so unsupported declarations resolve
// to KindUnrecognized exactly once, at introspection time, rather than being re-checked by string comparison at
// every call site.
type TypeKind int

const (
	// KindUnrecognized indicates a type the Catalog cannot synthesize. It is a first-class result, not an error;
	// trials over parameters of this kind are reported as skipped.
	KindUnrecognized TypeKind = iota

	// KindUint describes an unsigned integer with a declared bit width (TypeDescriptor.BitWidth).
	KindUint

	// KindInt describes a signed integer with a declared bit width (TypeDescriptor.BitWidth).
	KindInt

	// KindBool describes a boolean.
	KindBool

	// KindField describes a generic numeric circuit element (an arbitrary-precision prime field member).
	KindField

	// KindScalar describes an elliptic-curve scalar.
	KindScalar

	// KindGroup describes an elliptic-curve group element.
	KindGroup

	// KindPublicKey describes the public component of an asymmetric key pair.
	KindPublicKey

	// KindPrivateKey describes the private component of an asymmetric key pair.
	KindPrivateKey

	// KindSignature describes a cryptographic signature.
	KindSignature

	// KindAddress describes an account address.
	KindAddress

	// KindBytes describes a dynamically-sized opaque byte string.
	KindBytes

	// KindFixedBytes describes a fixed-size byte string of TypeDescriptor.ByteLength bytes.
	KindFixedBytes

	// KindString describes UTF-8 text.
	KindString

	// KindSequence describes an ordered sequence whose element type is TypeDescriptor.ElementType and whose
	// generated length is TypeDescriptor.Count.
	KindSequence
)

// TypeDescriptor is the resolved representation of one formal parameter's declared type. Descriptors are immutable
// value types constructed once per parameter during introspection and consumed by the ValueGenerator.
type TypeDescriptor struct {
	// Kind describes the semantic category of the type.
	Kind TypeKind

	// BitWidth describes the integer width in bits for KindUint and KindInt descriptors.
	BitWidth int

	// ByteLength describes the byte count for KindFixedBytes descriptors.
	ByteLength int

	// ElementType describes the inner descriptor for KindSequence descriptors.
	ElementType *TypeDescriptor

	// Count describes how many elements a generated KindSequence value will hold.
	Count int

	// typeText records the declared type text the descriptor was resolved from, for reporting.
	typeText string
}

// Unrecognized returns a descriptor marking a type the Catalog cannot synthesize, retaining the declared type text
// so skipped trials can report why they were skipped.
func Unrecognized(typeText string) TypeDescriptor {
	return TypeDescriptor{Kind: KindUnrecognized, typeText: typeText}
}

// Recognized indicates whether values of this type can be synthesized. A sequence is recognized only if its element
// type is recognized; an unrecognized inner type makes the whole sequence unrecognized.
func (d TypeDescriptor) Recognized() bool {
	if d.Kind == KindUnrecognized {
		return false
	}
	if d.Kind == KindSequence {
		return d.ElementType != nil && d.ElementType.Recognized()
	}
	return true
}

// TypeText returns the declared type text this descriptor was resolved from.
func (d TypeDescriptor) TypeText() string {
	return d.typeText
}

// String returns a canonical name for the descriptor, used in log output and entry point signatures.
func (d TypeDescriptor) String() string {
	switch d.Kind {
	case KindUint:
		return fmt.Sprintf("uint%d", d.BitWidth)
	case KindInt:
		return fmt.Sprintf("int%d", d.BitWidth)
	case KindBool:
		return "bool"
	case KindField:
		return "field"
	case KindScalar:
		return "scalar"
	case KindGroup:
		return "group"
	case KindPublicKey:
		return "publickey"
	case KindPrivateKey:
		return "privatekey"
	case KindSignature:
		return "signature"
	case KindAddress:
		return "address"
	case KindBytes:
		return "bytes"
	case KindFixedBytes:
		return fmt.Sprintf("bytes%d", d.ByteLength)
	case KindString:
		return "string"
	case KindSequence:
		return fmt.Sprintf("%s[%d]", d.ElementType.String(), d.Count)
	default:
		return fmt.Sprintf("unrecognized(%s)", d.typeText)
	}
}
