package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"custodia/crypto"
	"custodia/native/custody"
)

const (
	codeCustodyInvalidParams = -32021
	codeCustodyNotFound      = -32022
	codeCustodyForbidden     = -32023
	codeCustodyConflict      = -32024
	codeCustodyInternal      = -32025
	codeCustodyPaused        = -32026
)

type depositParams struct {
	Depositor  string `json:"depositor"`
	Commitment string `json:"commitment"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Signature  string `json:"signature"`
}

type withdrawParams struct {
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

type commitmentParams struct {
	Commitment string `json:"commitment"`
}

type verifyProofParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Salt   string `json:"salt"`
}

type entryJSON struct {
	Commitment string `json:"commitment"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	Depositor  string `json:"depositor"`
	CreatedAt  int64  `json:"createdAt"`
}

func entryToJSON(e *custody.Entry) *entryJSON {
	if e == nil {
		return nil
	}
	depositor, err := crypto.AddressFromBytes(e.Depositor[:])
	depositorStr := ""
	if err == nil {
		depositorStr = depositor.String()
	}
	return &entryJSON{
		Commitment: hex.EncodeToString(e.Commitment[:]),
		Token:      e.Token,
		Amount:     e.Amount.String(),
		Status:     e.Status.String(),
		Depositor:  depositorStr,
		CreatedAt:  e.CreatedAt,
	}
}

func parseAddressParam(value, field string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid %s address: %w", field, err)
	}
	return addr, nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseSaltHex(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	salt, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid salt hex: %w", err)
	}
	return salt, nil
}

func writeCustodyError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, custody.ErrInvalidAmount),
		errors.Is(err, custody.ErrInvalidToken),
		errors.Is(err, custody.ErrInvalidCommitment):
		writeError(w, http.StatusBadRequest, id, codeCustodyInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, custody.ErrCommitmentNotFound):
		writeError(w, http.StatusNotFound, id, codeCustodyNotFound, "not_found", err.Error())
	case errors.Is(err, custody.ErrAlreadySpent),
		errors.Is(err, custody.ErrDuplicateCommitment):
		writeError(w, http.StatusConflict, id, codeCustodyConflict, "conflict", err.Error())
	case errors.Is(err, custody.ErrPaused):
		writeError(w, http.StatusServiceUnavailable, id, codeCustodyPaused, "paused", err.Error())
	case errors.Is(err, custody.ErrUnauthenticated):
		writeError(w, http.StatusForbidden, id, codeCustodyForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeCustodyInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params depositParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	depositor, err := parseAddressParam(params.Depositor, "depositor")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	commitment, err := custody.ParseCommitment(strings.TrimPrefix(strings.TrimSpace(params.Commitment), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := verifyCallerSignature(depositor, params.Signature, "custody_deposit",
		depositor.String(), hex.EncodeToString(commitment[:]), strings.TrimSpace(params.Token), amount.String()); err != nil {
		writeError(w, http.StatusForbidden, req.ID, codeCustodyForbidden, "forbidden", err.Error())
		return
	}
	var depositorRaw [20]byte
	copy(depositorRaw[:], depositor.Bytes())
	entry, err := s.node.Deposit(depositorRaw, commitment, params.Token, amount)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, entryToJSON(entry))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params withdrawParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddressParam(params.To, "recipient")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	salt, err := parseSaltHex(params.Salt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	// The signature is what makes the recipient identity trustworthy: the
	// salt alone is not a spending capability.
	if err := verifyCallerSignature(to, params.Signature, "custody_withdraw",
		to.String(), amount.String(), hex.EncodeToString(salt)); err != nil {
		writeError(w, http.StatusForbidden, req.ID, codeCustodyForbidden, "forbidden", err.Error())
		return
	}
	var toRaw [20]byte
	copy(toRaw[:], to.Bytes())
	ok, err := s.node.Withdraw(toRaw, amount, salt)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ok)
}

func (s *Server) handleGetCommitmentState(w http.ResponseWriter, req *RPCRequest) {
	var params commitmentParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	commitment, err := custody.ParseCommitment(strings.TrimPrefix(strings.TrimSpace(params.Commitment), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	status, ok, err := s.node.CommitmentState(commitment)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, map[string]interface{}{"exists": false})
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"exists": true, "status": status.String()})
}

func (s *Server) handleGetEscrowDetails(w http.ResponseWriter, req *RPCRequest) {
	var params commitmentParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	commitment, err := custody.ParseCommitment(strings.TrimPrefix(strings.TrimSpace(params.Commitment), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	entry, ok, err := s.node.EscrowDetails(commitment)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	// An absent commitment is a result, not a failure.
	if !ok {
		writeResult(w, req.ID, map[string]interface{}{"exists": false})
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"exists": true, "entry": entryToJSON(entry)})
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, req *RPCRequest) {
	var params verifyProofParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	// verify_proof never errors: any malformed or non-matching input is
	// simply not a valid proof.
	to, err := parseAddressParam(params.To, "recipient")
	if err != nil {
		writeResult(w, req.ID, false)
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeResult(w, req.ID, false)
		return
	}
	salt, err := parseSaltHex(params.Salt)
	if err != nil {
		writeResult(w, req.ID, false)
		return
	}
	var toRaw [20]byte
	copy(toRaw[:], to.Bytes())
	writeResult(w, req.ID, s.node.VerifyProof(toRaw, amount, salt))
}
