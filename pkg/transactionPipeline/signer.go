package transactionPipeline

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer produces a signed transaction for the account it controls. The
// elliptic-curve math itself lives in go-ethereum's crypto package; this
// interface only scopes who holds key material.
type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
}

// KeySigner signs with a raw secp256k1 secret scalar. The scalar is
// materialized as a curve key only for the duration of each signature and
// zeroized again on every exit path; Close scrubs the stored copy.
type KeySigner struct {
	scalar  []byte
	address common.Address
}

// NewKeySigner copies the 32-byte secret scalar. The caller keeps
// ownership of its own buffer and should scrub it.
func NewKeySigner(scalar []byte) (*KeySigner, error) {
	if len(scalar) != 32 {
		return nil, errors.Errorf("secret scalar must be 32 bytes, got %d", len(scalar))
	}
	owned := append([]byte{}, scalar...)

	priv, err := crypto.ToECDSA(owned)
	if err != nil {
		zeroBytes(owned)
		return nil, errors.Wrap(err, "invalid secret scalar")
	}
	address := crypto.PubkeyToAddress(priv.PublicKey)
	zeroPrivateKey(priv)

	return &KeySigner{scalar: owned, address: address}, nil
}

// NewKeySignerFromHex parses a 0x-prefixed or bare hex scalar.
func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	if len(hexKey) >= 2 && hexKey[:2] != "0x" {
		hexKey = "0x" + hexKey
	}
	scalar, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex key")
	}
	signer, err := NewKeySigner(scalar)
	zeroBytes(scalar)
	return signer, err
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTx signs the transaction payload for the given chain. The ephemeral
// curve key is zeroized before returning, on success and failure alike.
func (s *KeySigner) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if len(s.scalar) == 0 {
		return nil, errors.New("signer is closed")
	}
	priv, err := crypto.ToECDSA(s.scalar)
	if err != nil {
		return nil, errors.Wrap(err, "invalid secret scalar")
	}
	defer zeroPrivateKey(priv)

	return types.SignTx(tx, types.LatestSignerForChainID(chainID), priv)
}

// Close zeroizes the stored scalar. The signer is unusable afterwards;
// calling Close again is a no-op.
func (s *KeySigner) Close() {
	zeroBytes(s.scalar)
	s.scalar = nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// zeroPrivateKey scrubs the big.Int limbs holding the secret scalar.
func zeroPrivateKey(priv *ecdsa.PrivateKey) {
	bits := priv.D.Bits()
	for i := range bits {
		bits[i] = 0
	}
}
