package valuegeneration

import (
	"fmt"
	"strconv"
	"strings"
)

// Catalog resolves declared parameter type text into TypeDescriptor values. It maintains a fixed mapping from
// canonical type names to descriptors; the mapping is closed and only extensible by recompilation. Lookups are pure:
// an unknown name resolves to an unrecognized descriptor, never an error, because unsupported parameter types are an
// expected case handled as skipped trials downstream.
type Catalog struct {
	// sequenceLength describes how many elements a generated sequence value will hold. This is a generation policy
	// to keep synthesized calls cheap, not a property of the contract language.
	sequenceLength int

	// scalars maps canonical scalar type names to their descriptors.
	scalars map[string]TypeDescriptor
}

// NewCatalog creates a Catalog whose recognized sequence types generate sequenceLength elements each.
func NewCatalog(sequenceLength int) *Catalog {
	catalog := &Catalog{
		sequenceLength: sequenceLength,
		scalars:        make(map[string]TypeDescriptor),
	}

	// Circuit-language scalar types. Unsigned widths mirror the circuit library's UIntN family.
	catalog.scalars["Field"] = TypeDescriptor{Kind: KindField}
	catalog.scalars["Bool"] = TypeDescriptor{Kind: KindBool}
	catalog.scalars["UInt8"] = TypeDescriptor{Kind: KindUint, BitWidth: 8}
	catalog.scalars["UInt32"] = TypeDescriptor{Kind: KindUint, BitWidth: 32}
	catalog.scalars["UInt64"] = TypeDescriptor{Kind: KindUint, BitWidth: 64}
	catalog.scalars["PublicKey"] = TypeDescriptor{Kind: KindPublicKey}
	catalog.scalars["PrivateKey"] = TypeDescriptor{Kind: KindPrivateKey}
	catalog.scalars["Signature"] = TypeDescriptor{Kind: KindSignature}
	catalog.scalars["Group"] = TypeDescriptor{Kind: KindGroup}
	catalog.scalars["Scalar"] = TypeDescriptor{Kind: KindScalar}
	catalog.scalars["CircuitString"] = TypeDescriptor{Kind: KindString}

	// Solidity scalar types.
	for width := 8; width <= 256; width += 8 {
		catalog.scalars[fmt.Sprintf("uint%d", width)] = TypeDescriptor{Kind: KindUint, BitWidth: width}
		catalog.scalars[fmt.Sprintf("int%d", width)] = TypeDescriptor{Kind: KindInt, BitWidth: width}
	}
	catalog.scalars["uint"] = TypeDescriptor{Kind: KindUint, BitWidth: 256}
	catalog.scalars["int"] = TypeDescriptor{Kind: KindInt, BitWidth: 256}
	catalog.scalars["bool"] = TypeDescriptor{Kind: KindBool}
	catalog.scalars["address"] = TypeDescriptor{Kind: KindAddress}
	catalog.scalars["string"] = TypeDescriptor{Kind: KindString}
	catalog.scalars["bytes"] = TypeDescriptor{Kind: KindBytes}
	for length := 1; length <= 32; length++ {
		catalog.scalars[fmt.Sprintf("bytes%d", length)] = TypeDescriptor{Kind: KindFixedBytes, ByteLength: length}
	}

	return catalog
}

// SequenceLength returns the element count generated sequences will hold.
func (c *Catalog) SequenceLength() int {
	return c.sequenceLength
}

// Recognize resolves declared type text into a TypeDescriptor. A name carrying a sequence marker ("[]" or "[N]") is
// recognized if and only if its base type is recognized; the resulting descriptor carries a fixed element count
// (the catalog's configured sequence length, or N when the declaration fixes one). Unknown names resolve to an
// unrecognized descriptor.
func (c *Catalog) Recognize(typeText string) TypeDescriptor {
	name := strings.TrimSpace(typeText)

	// Sequence types: strip one trailing "[...]" marker and recurse on the base type.
	if strings.HasSuffix(name, "]") {
		open := strings.LastIndex(name, "[")
		if open <= 0 {
			return Unrecognized(typeText)
		}
		elementDescriptor := c.Recognize(name[:open])
		if !elementDescriptor.Recognized() {
			return Unrecognized(typeText)
		}

		// A declared fixed size overrides the catalog's default element count.
		count := c.sequenceLength
		if sizeText := name[open+1 : len(name)-1]; sizeText != "" {
			declaredSize, err := strconv.Atoi(sizeText)
			if err != nil || declaredSize < 0 {
				return Unrecognized(typeText)
			}
			count = declaredSize
		}
		return TypeDescriptor{
			Kind:        KindSequence,
			ElementType: &elementDescriptor,
			Count:       count,
			typeText:    typeText,
		}
	}

	if descriptor, recognized := c.scalars[name]; recognized {
		descriptor.typeText = typeText
		return descriptor
	}
	return Unrecognized(typeText)
}
