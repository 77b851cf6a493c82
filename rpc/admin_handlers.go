package rpc

import (
	"errors"
	"net/http"
	"strconv"

	"custodia/crypto"
	"custodia/native/admin"
)

const (
	codeAdminInvalidParams = -32031
	codeAdminUnauthorized  = -32032
	codeAdminConflict      = -32033
	codeAdminInternal      = -32034
)

type adminInitializeParams struct {
	Admin string `json:"admin"`
}

type adminSetAdminParams struct {
	Caller    string `json:"caller"`
	NewAdmin  string `json:"newAdmin"`
	Signature string `json:"signature"`
}

type adminSetPausedParams struct {
	Caller    string `json:"caller"`
	Paused    bool   `json:"paused"`
	Signature string `json:"signature"`
}

func writeAdminError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, admin.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, id, codeAdminConflict, "already_initialized", err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeAdminUnauthorized, "unauthorized", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeAdminInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleAdminInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminInitializeParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	adminAddr, err := parseAddressParam(params.Admin, "admin")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	var raw [20]byte
	copy(raw[:], adminAddr.Bytes())
	if err := s.node.InitializeAdmin(raw); err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAdminGet(w http.ResponseWriter, req *RPCRequest) {
	adminAddr, ok, err := s.node.Admin()
	if err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, map[string]interface{}{"initialized": false})
		return
	}
	rendered, err := crypto.AddressFromBytes(adminAddr[:])
	if err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"initialized": true, "admin": rendered.String()})
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminSetAdminParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	newAdmin, err := parseAddressParam(params.NewAdmin, "newAdmin")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := verifyCallerSignature(caller, params.Signature, "admin_setAdmin",
		caller.String(), newAdmin.String()); err != nil {
		writeError(w, http.StatusForbidden, req.ID, codeAdminUnauthorized, "unauthorized", err.Error())
		return
	}
	var callerRaw, newRaw [20]byte
	copy(callerRaw[:], caller.Bytes())
	copy(newRaw[:], newAdmin.Bytes())
	if err := s.node.SetAdmin(callerRaw, newRaw); err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminSetPausedParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAdminInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := verifyCallerSignature(caller, params.Signature, "admin_setPaused",
		caller.String(), strconv.FormatBool(params.Paused)); err != nil {
		writeError(w, http.StatusForbidden, req.ID, codeAdminUnauthorized, "unauthorized", err.Error())
		return
	}
	var callerRaw [20]byte
	copy(callerRaw[:], caller.Bytes())
	if err := s.node.SetPaused(callerRaw, params.Paused); err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleIsPaused(w http.ResponseWriter, req *RPCRequest) {
	paused, err := s.node.IsPaused()
	if err != nil {
		writeAdminError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, paused)
}
