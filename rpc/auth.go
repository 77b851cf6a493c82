package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"custodia/crypto"
)

// signaturePayload builds the canonical byte string signed by callers of
// mutating methods. Fields are newline-joined after the method name so no
// two methods can share a payload.
func signaturePayload(method string, parts ...string) []byte {
	return []byte(method + "\n" + strings.Join(parts, "\n"))
}

// verifyCallerSignature proves that the caller controls the address it
// asserts by recovering the signer of the canonical payload. This is the
// authentication oracle for the RPC transport: engines behind it trust
// identities only after this check passes.
func verifyCallerSignature(caller crypto.Address, sigHex, method string, parts ...string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sigHex), "0x"))
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if !crypto.VerifySignature(caller, signaturePayload(method, parts...), sig) {
		return fmt.Errorf("signature does not match caller")
	}
	return nil
}

// SignPayload is the client-side counterpart of verifyCallerSignature. The
// CLI and tests use it to produce request signatures.
func SignPayload(key *crypto.PrivateKey, method string, parts ...string) (string, error) {
	sig, err := key.Sign(signaturePayload(method, parts...))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}
