package rpc

import (
	"net/http"
)

const (
	codePrivacyInvalidParams = -32041
	codePrivacyInternal      = -32042
)

type privacyEnableParams struct {
	Account string `json:"account"`
	Level   uint32 `json:"level"`
}

type privacyAccountParams struct {
	Account string `json:"account"`
}

func (s *Server) handlePrivacyEnable(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params privacyEnableParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := parseAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	var raw [20]byte
	copy(raw[:], account.Bytes())
	ok, err := s.node.EnablePrivacy(raw, params.Level)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codePrivacyInternal, "internal_error", err.Error())
		return
	}
	writeResult(w, req.ID, ok)
}

func (s *Server) handlePrivacyStatus(w http.ResponseWriter, req *RPCRequest) {
	var params privacyAccountParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := parseAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	var raw [20]byte
	copy(raw[:], account.Bytes())
	level, ok, err := s.node.PrivacyStatus(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codePrivacyInternal, "internal_error", err.Error())
		return
	}
	if !ok {
		writeResult(w, req.ID, map[string]interface{}{"set": false})
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"set": true, "level": level})
}

func (s *Server) handlePrivacyHistory(w http.ResponseWriter, req *RPCRequest) {
	var params privacyAccountParams
	if err := singleParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := parseAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePrivacyInvalidParams, "invalid_params", err.Error())
		return
	}
	var raw [20]byte
	copy(raw[:], account.Bytes())
	history, err := s.node.PrivacyHistory(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codePrivacyInternal, "internal_error", err.Error())
		return
	}
	writeResult(w, req.ID, history)
}
