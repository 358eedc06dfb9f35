// Package http provides a synchronous request/response binding of the
// payment-request operations: a net/http service plus gin and echo adapters.
// Request bodies are validated against JSON schemas before decoding.
package http

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

// Service exposes a RequestLifecycle over HTTP. All endpoints are POST with
// JSON bodies; 32-byte fields and proof blobs are hex-encoded.
type Service struct {
	lifecycle *payreq.RequestLifecycle
}

// NewService creates the HTTP binding for a lifecycle.
func NewService(lifecycle *payreq.RequestLifecycle) *Service {
	return &Service{lifecycle: lifecycle}
}

// Handler returns the service's routes on a standard mux.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/requests", s.CreateHandler)
	mux.HandleFunc("/v1/requests/private", s.CreatePrivateHandler)
	mux.HandleFunc("/v1/settle", s.SettleHandler)
	mux.HandleFunc("/v1/settle/private", s.SettlePrivateHandler)
	mux.HandleFunc("/v1/sweep", s.SweepHandler)
	mux.HandleFunc("/v1/sweep/private", s.SweepPrivateHandler)
	return mux
}

// ============================================================================
// Request / response bodies
// ============================================================================

type createRequestBody struct {
	Owner     string `json:"owner"`
	RequestID uint64 `json:"requestId"`
	Amount    uint64 `json:"amount"`
}

type createPrivateRequestBody struct {
	Owner            string `json:"owner"`
	RequestID        uint64 `json:"requestId"`
	AmountCommitment string `json:"amountCommitment"`
	RangeProof       string `json:"rangeProof"`
	MinAmount        uint64 `json:"minAmount"`
	MaxAmount        uint64 `json:"maxAmount"`
	EphemeralPubKey  string `json:"ephemeralPubKey"`
}

type settleBody struct {
	Owner     string `json:"owner"`
	RequestID uint64 `json:"requestId"`
	Payer     string `json:"payer"`
}

type settlePrivateBody struct {
	Owner        string `json:"owner"`
	RequestID    uint64 `json:"requestId"`
	Payer        string `json:"payer"`
	Amount       uint64 `json:"amount"`
	PaymentProof string `json:"paymentProof"`
}

type sweepBody struct {
	Owner     string `json:"owner"`
	RequestID uint64 `json:"requestId"`
	Receiver  string `json:"receiver"`
}

type sweepPrivateBody struct {
	Owner           string `json:"owner"`
	RequestID       uint64 `json:"requestId"`
	Receiver        string `json:"receiver"`
	OwnershipProof  string `json:"ownershipProof"`
	EphemeralSecret string `json:"ephemeralSecret"`
}

type createResponse struct {
	RequestAddress string `json:"requestAddress"`
	EscrowAddress  string `json:"escrowAddress"`
	StealthAddress string `json:"stealthAddress,omitempty"`
}

type settleResponse struct {
	Amount               uint64 `json:"amount"`
	EscrowAddress        string `json:"escrowAddress"`
	SettlementCommitment string `json:"settlementCommitment,omitempty"`
}

type sweepResponse struct {
	Amount         uint64 `json:"amount"`
	Receiver       string `json:"receiver"`
	OwnershipProof string `json:"ownershipProof,omitempty"`
}

type errorResponse struct {
	Error *payreq.ProtocolError `json:"error"`
}

// ============================================================================
// Handlers
// ============================================================================

// CreateHandler serves POST /v1/requests.
func (s *Service) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if !s.decode(w, r, createRequestSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}

	result, err := s.lifecycle.CreateRequest(r.Context(), owner, body.RequestID, body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		RequestAddress: result.RequestAddress.String(),
		EscrowAddress:  result.EscrowAddress.String(),
	})
}

// CreatePrivateHandler serves POST /v1/requests/private.
func (s *Service) CreatePrivateHandler(w http.ResponseWriter, r *http.Request) {
	var body createPrivateRequestBody
	if !s.decode(w, r, createPrivateRequestSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}
	commitment, err := types.CommitmentFromHex(body.AmountCommitment)
	if err != nil {
		writeBadField(w, "amountCommitment", err)
		return
	}
	rangeProof, err := blobFromHex(body.RangeProof)
	if err != nil {
		writeBadField(w, "rangeProof", err)
		return
	}
	ephemeral, err := word32FromHex(body.EphemeralPubKey)
	if err != nil {
		writeBadField(w, "ephemeralPubKey", err)
		return
	}

	result, err := s.lifecycle.CreatePrivateRequest(r.Context(), payreq.CreatePrivateParams{
		Owner:            owner,
		RequestID:        body.RequestID,
		AmountCommitment: commitment,
		RangeProof:       rangeProof,
		MinAmount:        body.MinAmount,
		MaxAmount:        body.MaxAmount,
		EphemeralPubKey:  ephemeral,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		RequestAddress: result.RequestAddress.String(),
		EscrowAddress:  result.EscrowAddress.String(),
		StealthAddress: result.StealthAddress.String(),
	})
}

// SettleHandler serves POST /v1/settle.
func (s *Service) SettleHandler(w http.ResponseWriter, r *http.Request) {
	var body settleBody
	if !s.decode(w, r, settleSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}
	payer, err := types.IdentityFromHex(body.Payer)
	if err != nil {
		writeBadField(w, "payer", err)
		return
	}

	result, err := s.lifecycle.Settle(r.Context(), owner, body.RequestID, payer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{
		Amount:        result.Amount,
		EscrowAddress: result.EscrowAddress.String(),
	})
}

// SettlePrivateHandler serves POST /v1/settle/private.
func (s *Service) SettlePrivateHandler(w http.ResponseWriter, r *http.Request) {
	var body settlePrivateBody
	if !s.decode(w, r, settlePrivateSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}
	payer, err := types.IdentityFromHex(body.Payer)
	if err != nil {
		writeBadField(w, "payer", err)
		return
	}
	proof, err := blobFromHex(body.PaymentProof)
	if err != nil {
		writeBadField(w, "paymentProof", err)
		return
	}

	result, err := s.lifecycle.SettlePrivate(r.Context(), owner, body.RequestID, payer, body.Amount, proof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{
		Amount:               result.Amount,
		EscrowAddress:        result.EscrowAddress.String(),
		SettlementCommitment: "0x" + hex.EncodeToString(result.SettlementCommitment[:]),
	})
}

// SweepHandler serves POST /v1/sweep.
func (s *Service) SweepHandler(w http.ResponseWriter, r *http.Request) {
	var body sweepBody
	if !s.decode(w, r, sweepSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}
	receiver, err := types.IdentityFromHex(body.Receiver)
	if err != nil {
		writeBadField(w, "receiver", err)
		return
	}

	result, err := s.lifecycle.Sweep(r.Context(), owner, body.RequestID, receiver)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Amount:   result.Amount,
		Receiver: result.Receiver.String(),
	})
}

// SweepPrivateHandler serves POST /v1/sweep/private.
func (s *Service) SweepPrivateHandler(w http.ResponseWriter, r *http.Request) {
	var body sweepPrivateBody
	if !s.decode(w, r, sweepPrivateSchema, &body) {
		return
	}
	owner, err := types.IdentityFromHex(body.Owner)
	if err != nil {
		writeBadField(w, "owner", err)
		return
	}
	receiver, err := types.IdentityFromHex(body.Receiver)
	if err != nil {
		writeBadField(w, "receiver", err)
		return
	}
	proof, err := blobFromHex(body.OwnershipProof)
	if err != nil {
		writeBadField(w, "ownershipProof", err)
		return
	}
	secret, err := word32FromHex(body.EphemeralSecret)
	if err != nil {
		writeBadField(w, "ephemeralSecret", err)
		return
	}

	result, err := s.lifecycle.SweepPrivate(r.Context(), owner, body.RequestID, receiver, proof, secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Amount:         result.Amount,
		Receiver:       result.Receiver.String(),
		OwnershipProof: "0x" + hex.EncodeToString(result.OwnershipProof),
	})
}

// ============================================================================
// Plumbing
// ============================================================================

// decode reads the body, validates it against the endpoint's schema, and
// unmarshals it. Writes the error response and returns false on failure.
func (s *Service) decode(w http.ResponseWriter, r *http.Request, schema *compiledSchema, out interface{}) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Error: payreq.NewProtocolError("method_not_allowed", "use POST", nil),
		})
		return false
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: payreq.NewProtocolError("malformed_request", "cannot read request body", nil),
		})
		return false
	}
	if err := schema.validate(raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: payreq.NewProtocolError("malformed_request", err.Error(), nil),
		})
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: payreq.NewProtocolError("malformed_request", "cannot decode request body", nil),
		})
		return false
	}
	return true
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadField(w http.ResponseWriter, field string, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: payreq.NewProtocolError("malformed_request", "invalid "+field+": "+err.Error(), nil),
	})
}

func writeError(w http.ResponseWriter, err error) {
	pe, ok := payreq.AsProtocolError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: payreq.NewProtocolError("internal_error", err.Error(), nil),
		})
		return
	}
	writeJSON(w, statusFor(pe.Code), errorResponse{Error: pe})
}

func statusFor(code string) int {
	switch code {
	case payreq.ErrCodeRequestNotFound:
		return http.StatusNotFound
	case payreq.ErrCodeRequestExists,
		payreq.ErrCodeAlreadySettled,
		payreq.ErrCodeAlreadySwept,
		payreq.ErrCodeNotSettled:
		return http.StatusConflict
	case payreq.ErrCodeUnauthorizedReceiver:
		return http.StatusForbidden
	case payreq.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case payreq.ErrCodeSchemeNotRegistered:
		return http.StatusNotImplemented
	case payreq.ErrCodeInvalidRange,
		payreq.ErrCodeAmountOutOfRange,
		payreq.ErrCodeInvalidProof,
		payreq.ErrCodeInvalidPaymentProof,
		payreq.ErrCodeInvalidReceiverProof,
		payreq.ErrCodeInvalidCommitment,
		payreq.ErrCodeOperationAborted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func blobFromHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func word32FromHex(s string) ([32]byte, error) {
	var out [32]byte
	addr, err := types.AddressFromHex(s)
	if err != nil {
		return out, err
	}
	copy(out[:], addr[:])
	return out, nil
}
