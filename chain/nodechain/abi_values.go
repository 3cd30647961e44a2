package nodechain

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// toABIValues converts generated values into the Go representations go-ethereum's ABI encoder expects. A value of a
// kind with no ABI representation (the proof-system kinds) yields an error, which the adapter classifies as an
// encoding failure rather than a backend fault.
func toABIValues(args []valuegeneration.Value) ([]any, error) {
	converted := make([]any, len(args))
	for i, arg := range args {
		value, err := toABIValue(arg)
		if err != nil {
			return nil, err
		}
		converted[i] = value
	}
	return converted, nil
}

// toABIValue converts one generated value per its descriptor kind.
func toABIValue(v valuegeneration.Value) (any, error) {
	switch v.Descriptor.Kind {
	case valuegeneration.KindUint:
		// The ABI encoder wants native integers up to 64 bits and *big.Int beyond.
		generated := v.Data.(*uint256.Int)
		switch v.Descriptor.BitWidth {
		case 8:
			return uint8(generated.Uint64()), nil
		case 16:
			return uint16(generated.Uint64()), nil
		case 32:
			return uint32(generated.Uint64()), nil
		case 64:
			return generated.Uint64(), nil
		default:
			return generated.ToBig(), nil
		}
	case valuegeneration.KindInt:
		generated := v.Data.(*big.Int)
		switch v.Descriptor.BitWidth {
		case 8:
			return int8(generated.Int64()), nil
		case 16:
			return int16(generated.Int64()), nil
		case 32:
			return int32(generated.Int64()), nil
		case 64:
			return generated.Int64(), nil
		default:
			return generated, nil
		}
	case valuegeneration.KindBool:
		return v.Data.(bool), nil
	case valuegeneration.KindAddress:
		return v.Data.(common.Address), nil
	case valuegeneration.KindBytes:
		return v.Data.([]byte), nil
	case valuegeneration.KindFixedBytes:
		data := v.Data.([]byte)
		array := reflect.New(reflect.ArrayOf(v.Descriptor.ByteLength, reflect.TypeOf(byte(0)))).Elem()
		reflect.Copy(array, reflect.ValueOf(data))
		return array.Interface(), nil
	case valuegeneration.KindString:
		return v.Data.(string), nil
	case valuegeneration.KindSequence:
		elementType, err := abiGoType(*v.Descriptor.ElementType)
		if err != nil {
			return nil, err
		}
		elements := v.Elements()
		slice := reflect.MakeSlice(reflect.SliceOf(elementType), len(elements), len(elements))
		for i, element := range elements {
			converted, convErr := toABIValue(element)
			if convErr != nil {
				return nil, convErr
			}
			slice.Index(i).Set(reflect.ValueOf(converted))
		}
		return slice.Interface(), nil
	default:
		return nil, errors.Errorf("type %v has no ABI representation", v.Descriptor.String())
	}
}

// abiGoType returns the reflect type toABIValue produces for a descriptor, used to build typed slices for
// sequences.
func abiGoType(d valuegeneration.TypeDescriptor) (reflect.Type, error) {
	switch d.Kind {
	case valuegeneration.KindUint:
		switch d.BitWidth {
		case 8:
			return reflect.TypeOf(uint8(0)), nil
		case 16:
			return reflect.TypeOf(uint16(0)), nil
		case 32:
			return reflect.TypeOf(uint32(0)), nil
		case 64:
			return reflect.TypeOf(uint64(0)), nil
		default:
			return reflect.TypeOf(&big.Int{}), nil
		}
	case valuegeneration.KindInt:
		switch d.BitWidth {
		case 8:
			return reflect.TypeOf(int8(0)), nil
		case 16:
			return reflect.TypeOf(int16(0)), nil
		case 32:
			return reflect.TypeOf(int32(0)), nil
		case 64:
			return reflect.TypeOf(int64(0)), nil
		default:
			return reflect.TypeOf(&big.Int{}), nil
		}
	case valuegeneration.KindBool:
		return reflect.TypeOf(false), nil
	case valuegeneration.KindAddress:
		return reflect.TypeOf(common.Address{}), nil
	case valuegeneration.KindBytes:
		return reflect.TypeOf([]byte{}), nil
	case valuegeneration.KindFixedBytes:
		return reflect.ArrayOf(d.ByteLength, reflect.TypeOf(byte(0))), nil
	case valuegeneration.KindString:
		return reflect.TypeOf(""), nil
	case valuegeneration.KindSequence:
		elementType, err := abiGoType(*d.ElementType)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elementType), nil
	default:
		return nil, errors.Errorf("type %v has no ABI representation", d.String())
	}
}
