package valuegeneration

import (
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValueGenerator represents a provider used to synthesize call arguments for recognized parameter types during
// fuzzing campaigns.
type ValueGenerator interface {
	// Generate produces one freshly-randomized value of the type the provided descriptor describes. The descriptor
	// must be recognized; generation for a recognized type must always succeed.
	Generate(descriptor TypeDescriptor) Value
}

// RandomValueGeneratorConfig defines the tunable policy of a RandomValueGenerator.
type RandomValueGeneratorConfig struct {
	// GenerateRandomStringLength describes the length of strings generated for text-typed parameters. Strings are
	// kept short to exercise string-handling paths without stressing storage limits.
	GenerateRandomStringLength int

	// GenerateRandomBytesMaxLength describes the maximum length of dynamically-sized byte strings.
	GenerateRandomBytesMaxLength int
}

// RandomValueGenerator generates values for recognized parameter types by uniform sampling from a pseudo-random
// source. Cryptographic kinds (keys, signatures, group elements, scalars) are built with the crypto library's own
// random constructors so that every generated value is a valid member of its algebraic structure.
type RandomValueGenerator struct {
	// config describes the tunable generation policy.
	config *RandomValueGeneratorConfig

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
	// randomProviderLock offers thread safety around the random provider.
	randomProviderLock sync.Mutex
}

// stringCharset is the alphabet random strings are drawn from.
const stringCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRandomValueGenerator creates a RandomValueGenerator with the provided configuration and random source. If
// randomProvider is nil, a time-seeded source is created; reproducibility is not a default goal, so callers wanting
// deterministic output must supply their own seeded provider.
func NewRandomValueGenerator(config *RandomValueGeneratorConfig, randomProvider *rand.Rand) *RandomValueGenerator {
	if randomProvider == nil {
		randomProvider = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomValueGenerator{
		config:         config,
		randomProvider: randomProvider,
	}
}

// Generate produces one freshly-randomized value of the type the provided descriptor describes. Generate is only
// invoked after the Catalog confirmed recognition, so a failure to construct a value here is a programming error and
// panics rather than surfacing a user-facing outcome.
func (g *RandomValueGenerator) Generate(descriptor TypeDescriptor) Value {
	switch descriptor.Kind {
	case KindUint:
		return Value{Descriptor: descriptor, Data: g.generateUint(descriptor.BitWidth)}
	case KindInt:
		return Value{Descriptor: descriptor, Data: g.generateInt(descriptor.BitWidth)}
	case KindBool:
		return Value{Descriptor: descriptor, Data: g.generateBool()}
	case KindField:
		// Field elements are drawn from a 64-bit-representable subset of the prime field. This is an explicit
		// simplification, not full-domain coverage.
		var element fr.Element
		element.SetUint64(g.generateUint64())
		return Value{Descriptor: descriptor, Data: element}
	case KindScalar:
		var element fr.Element
		if _, err := element.SetRandom(); err != nil {
			panic(fmt.Sprintf("value generator could not sample a random scalar: %v", err))
		}
		return Value{Descriptor: descriptor, Data: element}
	case KindGroup:
		// Multiplying the group generator by a random exponent always yields a valid curve point.
		_, _, g1Generator, _ := bn254.Generators()
		var point bn254.G1Affine
		point.ScalarMultiplication(&g1Generator, new(big.Int).SetUint64(g.generateUint64()))
		return Value{Descriptor: descriptor, Data: point}
	case KindPublicKey:
		return Value{Descriptor: descriptor, Data: &g.generateKeyPair().PublicKey}
	case KindPrivateKey:
		return Value{Descriptor: descriptor, Data: g.generateKeyPair()}
	case KindSignature:
		return Value{Descriptor: descriptor, Data: g.generateSignature()}
	case KindAddress:
		return Value{Descriptor: descriptor, Data: common.BytesToAddress(g.generateBytesOfLength(common.AddressLength))}
	case KindBytes:
		return Value{Descriptor: descriptor, Data: g.generateBytes()}
	case KindFixedBytes:
		return Value{Descriptor: descriptor, Data: g.generateBytesOfLength(descriptor.ByteLength)}
	case KindString:
		return Value{Descriptor: descriptor, Data: g.generateString()}
	case KindSequence:
		// Sequences recurse: element count is fixed by catalog policy, values are independent per element.
		elements := make([]Value, descriptor.Count)
		for i := 0; i < descriptor.Count; i++ {
			elements[i] = g.Generate(*descriptor.ElementType)
		}
		return Value{Descriptor: descriptor, Data: elements}
	default:
		panic(fmt.Sprintf("value generator invoked for unrecognized type %q", descriptor.TypeText()))
	}
}

// generateUint draws an unsigned integer uniformly over [0, 2^bitWidth).
func (g *RandomValueGenerator) generateUint(bitWidth int) *uint256.Int {
	return new(uint256.Int).SetBytes(g.generateBytesOfLength(bitWidth / 8))
}

// generateInt draws a signed integer uniformly over the two's-complement range of the provided bit width.
func (g *RandomValueGenerator) generateInt(bitWidth int) *big.Int {
	value := new(big.Int).SetBytes(g.generateBytesOfLength(bitWidth / 8))

	// Reinterpret the top bit as the sign bit.
	half := new(big.Int).Lsh(big.NewInt(1), uint(bitWidth-1))
	if value.Cmp(half) >= 0 {
		value.Sub(value, new(big.Int).Lsh(half, 1))
	}
	return value
}

// generateBool draws a boolean via fair coin flip.
func (g *RandomValueGenerator) generateBool() bool {
	g.randomProviderLock.Lock()
	defer g.randomProviderLock.Unlock()
	return g.randomProvider.Uint32()%2 == 0
}

// generateUint64 draws a uniform uint64.
func (g *RandomValueGenerator) generateUint64() uint64 {
	g.randomProviderLock.Lock()
	defer g.randomProviderLock.Unlock()
	return g.randomProvider.Uint64()
}

// generateBytes draws a byte string of random length, bounded by the configured maximum.
func (g *RandomValueGenerator) generateBytes() []byte {
	g.randomProviderLock.Lock()
	length := g.randomProvider.Intn(g.config.GenerateRandomBytesMaxLength + 1)
	g.randomProviderLock.Unlock()
	return g.generateBytesOfLength(length)
}

// generateBytesOfLength fills a byte slice of the provided length with random bytes.
func (g *RandomValueGenerator) generateBytesOfLength(length int) []byte {
	b := make([]byte, length)
	g.randomProviderLock.Lock()
	g.randomProvider.Read(b)
	g.randomProviderLock.Unlock()
	return b
}

// generateString draws a short alphanumeric string of the configured length.
func (g *RandomValueGenerator) generateString() string {
	b := make([]byte, g.config.GenerateRandomStringLength)
	g.randomProviderLock.Lock()
	for i := range b {
		b[i] = stringCharset[g.randomProvider.Intn(len(stringCharset))]
	}
	g.randomProviderLock.Unlock()
	return string(b)
}

// generateKeyPair creates a fresh key pair with the signature scheme's own generator, so both key components are
// always valid.
func (g *RandomValueGenerator) generateKeyPair() *eddsa.PrivateKey {
	g.randomProviderLock.Lock()
	defer g.randomProviderLock.Unlock()
	privateKey, err := eddsa.GenerateKey(g.randomProvider)
	if err != nil {
		panic(fmt.Sprintf("value generator could not create a key pair: %v", err))
	}
	return privateKey
}

// generateSignature signs a random message with a freshly generated key, yielding a structurally valid signature.
func (g *RandomValueGenerator) generateSignature() []byte {
	privateKey := g.generateKeyPair()
	message := g.generateBytesOfLength(fr.Bytes)

	// The message must be reduced into the scalar field before signing.
	var reduced fr.Element
	reduced.SetBytes(message)
	reducedBytes := reduced.Bytes()

	signature, err := privateKey.Sign(reducedBytes[:], mimc.NewMiMC())
	if err != nil {
		panic(fmt.Sprintf("value generator could not sign: %v", err))
	}
	return signature
}
