package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/clinicdesk/payverify/internal/activation"
	"github.com/clinicdesk/payverify/internal/signature"
	"github.com/clinicdesk/payverify/internal/store"
)

// Fixed client-facing messages. Nothing else about a failure is returned.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingDetails   = "Missing payment details"
	msgConfigError      = "Server configuration error"
	msgInvalidSignature = "Invalid payment signature"
	msgInternalError    = "Internal server error"
	msgActivated        = "Payment verified and subscription activated"
)

// verifyRequest is the checkout callback body.
type verifyRequest struct {
	PaymentID   string
	OrderID     string
	Signature   string
	ClinicName  string
	ContactName string
	Email       string
	Phone       string
	Plan        string
	Amount      string
}

type verifyResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func failure(msg string) verifyResponse {
	return verifyResponse{Success: false, Error: msg}
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	req, err := decodeVerifyRequest(r)
	if err != nil {
		s.logger.Debug("undecodable verify request", "error", err, "request_id", chimw.GetReqID(r.Context()))
		req = &verifyRequest{}
	}
	if err := signature.RequireFields(req.OrderID, req.PaymentID, req.Signature); err != nil {
		s.audit(r, store.ActionRejected, req, map[string]string{"reason": err.Error()})
		writeError(w, http.StatusBadRequest, msgMissingDetails)
		return
	}

	result, err := s.verifier.Verify(req.OrderID, req.PaymentID, req.Signature)
	switch {
	case errors.Is(err, signature.ErrNotConfigured):
		s.logger.Error("razorpay key secret not configured")
		writeError(w, http.StatusInternalServerError, msgConfigError)
		return
	case errors.Is(err, signature.ErrMissingField):
		writeError(w, http.StatusBadRequest, msgMissingDetails)
		return
	case err != nil:
		s.logger.Error("payment verification error", "error", err, "payment_id", req.PaymentID)
		writeJSON(w, http.StatusInternalServerError, failure(msgInternalError))
		return
	}

	if result != signature.Valid {
		s.logger.Warn("invalid payment signature", "payment_id", req.PaymentID, "order_id", req.OrderID)
		s.audit(r, store.ActionSignatureInvalid, req, nil)
		writeJSON(w, http.StatusBadRequest, failure(msgInvalidSignature))
		return
	}

	if err := s.activator.Activate(r.Context(), activation.Payment{
		PaymentID:   req.PaymentID,
		OrderID:     req.OrderID,
		ClinicName:  req.ClinicName,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Plan:        req.Plan,
		Amount:      req.Amount,
	}); err != nil {
		s.logger.Error("payment verification error", "error", err, "payment_id", req.PaymentID)
		writeJSON(w, http.StatusInternalServerError, failure(msgInternalError))
		return
	}

	s.audit(r, store.ActionVerified, req, map[string]string{"plan": req.Plan, "amount": req.Amount})
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:   true,
		Message:   msgActivated,
		PaymentID: req.PaymentID,
	})
}

// decodeVerifyRequest reads a JSON or form-encoded callback body.
func decodeVerifyRequest(r *http.Request) (*verifyRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return verifyRequestFrom(r.PostForm.Get), nil
	}

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return verifyRequestFrom(func(key string) string {
		if requiredFields[key] {
			s, _ := raw[key].(string)
			return s
		}
		return stringValue(raw[key])
	}), nil
}

// requiredFields must arrive as JSON strings; any other type counts as absent.
var requiredFields = map[string]bool{
	signature.FieldPaymentID: true,
	signature.FieldOrderID:   true,
	signature.FieldSignature: true,
}

func verifyRequestFrom(get func(string) string) *verifyRequest {
	return &verifyRequest{
		PaymentID:   get(signature.FieldPaymentID),
		OrderID:     get(signature.FieldOrderID),
		Signature:   get(signature.FieldSignature),
		ClinicName:  get("clinic_name"),
		ContactName: get("contact_name"),
		Email:       get("email"),
		Phone:       get("phone"),
		Plan:        get("plan"),
		Amount:      get("amount"),
	}
}

// stringValue renders scalar JSON passthrough values as strings. Objects,
// arrays and null count as absent.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// audit records a verification outcome. It never affects the response.
func (s *Server) audit(r *http.Request, action string, req *verifyRequest, detail map[string]string) {
	if s.store == nil {
		return
	}
	var raw json.RawMessage
	if len(detail) > 0 {
		raw, _ = json.Marshal(detail)
	}
	ev := &store.AuditEvent{
		ID:         uuid.New().String(),
		Action:     action,
		PaymentID:  req.PaymentID,
		OrderID:    req.OrderID,
		RemoteAddr: clientIP(r),
		Detail:     raw,
		CreatedAt:  time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()
	if err := s.store.LogAuditEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to log audit event", "action", action, "error", err)
	}
}
