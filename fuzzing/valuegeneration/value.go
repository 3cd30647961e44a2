package valuegeneration

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Value pairs one synthesized datum with the TypeDescriptor it was generated for. The concrete type held in Data
// depends on the descriptor kind:
//   - KindUint: *uint256.Int (masked to the declared bit width)
//   - KindInt: *big.Int (within the declared two's-complement range)
//   - KindBool: bool
//   - KindField, KindScalar: fr.Element
//   - KindGroup: bn254.G1Affine
//   - KindPublicKey: *eddsa.PublicKey
//   - KindPrivateKey: *eddsa.PrivateKey
//   - KindSignature: []byte
//   - KindAddress: common.Address
//   - KindBytes, KindFixedBytes: []byte
//   - KindString: string
//   - KindSequence: []Value
type Value struct {
	// Descriptor describes the type this value was generated for.
	Descriptor TypeDescriptor

	// Data holds the generated datum; see the Value doc comment for the concrete type per kind.
	Data any
}

// String returns a short human-readable rendering of the value, used when echoing failing trial arguments.
func (v Value) String() string {
	switch data := v.Data.(type) {
	case *uint256.Int:
		return data.Dec()
	case *big.Int:
		return data.String()
	case bool:
		return fmt.Sprintf("%t", data)
	case fr.Element:
		return data.String()
	case bn254.G1Affine:
		return fmt.Sprintf("(%s, %s)", data.X.String(), data.Y.String())
	case *eddsa.PublicKey:
		return "0x" + hex.EncodeToString(data.Bytes())
	case *eddsa.PrivateKey:
		return "0x" + hex.EncodeToString(data.Bytes())
	case []byte:
		return "0x" + hex.EncodeToString(data)
	case common.Address:
		return data.Hex()
	case string:
		return fmt.Sprintf("%q", data)
	case []Value:
		elements := make([]string, len(data))
		for i := 0; i < len(data); i++ {
			elements[i] = data[i].String()
		}
		return "[" + strings.Join(elements, ", ") + "]"
	default:
		return fmt.Sprintf("%v", data)
	}
}

// Elements returns the element values of a KindSequence value, or nil for scalar values.
func (v Value) Elements() []Value {
	if elements, ok := v.Data.([]Value); ok {
		return elements
	}
	return nil
}
