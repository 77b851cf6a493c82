package custody

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CommitmentLength is the byte length of a commitment digest.
const CommitmentLength = 32

// amountByteLen is the width of the big-endian two's-complement amount
// encoding hashed into the commitment. Amounts are signed 128-bit integers.
const amountByteLen = 16

var (
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	i128Mod = new(big.Int).Lsh(big.NewInt(1), 128)
)

// AmountBytes encodes a signed 128-bit amount as 16 big-endian
// two's-complement bytes. Values outside the i128 range are rejected.
func AmountBytes(amount *big.Int) ([amountByteLen]byte, error) {
	var out [amountByteLen]byte
	if amount == nil {
		return out, ErrInvalidAmount
	}
	if amount.Cmp(i128Max) > 0 || amount.Cmp(i128Min) < 0 {
		return out, fmt.Errorf("custody: amount outside 128-bit range")
	}
	v := amount
	if v.Sign() < 0 {
		v = new(big.Int).Add(i128Mod, v)
	}
	v.FillBytes(out[:])
	return out, nil
}

// ComputeCommitment derives the commitment digest binding a recipient to an
// amount and a caller-supplied salt:
//
//	sha256(recipient ‖ be_bytes_16(amount) ‖ salt)
//
// The function is pure and deterministic. The withdrawal path recomputes the
// digest independently from the deposit path, so the encoding here is the
// wire contract between the two.
func ComputeCommitment(recipient [20]byte, amount *big.Int, salt []byte) ([32]byte, error) {
	amountBytes, err := AmountBytes(amount)
	if err != nil {
		return [32]byte{}, err
	}
	h := sha256.New()
	h.Write(recipient[:])
	h.Write(amountBytes[:])
	h.Write(salt)
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// ParseCommitment decodes a hex-encoded commitment digest.
func ParseCommitment(s string) ([32]byte, error) {
	var commitment [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return commitment, fmt.Errorf("custody: invalid commitment hex: %w", err)
	}
	if len(raw) != CommitmentLength {
		return commitment, fmt.Errorf("custody: commitment must be %d bytes, got %d", CommitmentLength, len(raw))
	}
	copy(commitment[:], raw)
	return commitment, nil
}
