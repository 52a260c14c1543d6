package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/entity"
	"github.com/revival-automotive/account-service/internal/registration"
	"github.com/revival-automotive/account-service/internal/repository"
	"github.com/revival-automotive/account-service/internal/session"
	"go.uber.org/zap"
)

// AccountHandler serves the login/registration modal's backend: the
// registration flow, password and federated sign-in, profile completion and
// account editing.
type AccountHandler struct {
	manager    *registration.Manager
	reconciler *session.Reconciler
	provider   auth.Provider
	profiles   repository.ProfileStore
	tokens     *session.TokenStore
	logger     *zap.Logger
}

func NewAccountHandler(
	manager *registration.Manager,
	reconciler *session.Reconciler,
	provider auth.Provider,
	profiles repository.ProfileStore,
	tokens *session.TokenStore,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		manager:    manager,
		reconciler: reconciler,
		provider:   provider,
		profiles:   profiles,
		tokens:     tokens,
		logger:     logger.Named("AccountHandler"),
	}
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedRequest struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type profileFormRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
}

type profileResponse struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Address    string `json:"address"`
	Role       string `json:"role"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type sessionResponse struct {
	Token           string          `json:"token,omitempty"`
	Profile         profileResponse `json:"profile"`
	NeedsCompletion bool            `json:"needsCompletion"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register handles the registration form submission and starts the
// email-verification step.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Register", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	err := h.manager.SubmitDetails(r.Context(), registration.Input{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Street:     req.Street,
		Suburb:     req.Suburb,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{
		Status:  "awaiting_verification",
		Message: "We emailed you a 6-digit verification code.",
	})
}

// VerifyRegistration handles the 6-digit code submission and completes
// account creation.
func (h *AccountHandler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	outcome, err := h.manager.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, "VerifyRegistration", err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, outcome)
}

// BackToDetails abandons the verification step and returns to the form.
func (h *AccountHandler) BackToDetails(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.manager.Back(req.Email); err != nil {
		h.writeError(w, "BackToDetails", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "collecting_details"})
}

// ResendCode issues a fresh verification code.
func (h *AccountHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.manager.ResendCode(r.Context(), req.Email); err != nil {
		h.writeError(w, "ResendCode", err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{
		Status:  "awaiting_verification",
		Message: "We emailed you a new 6-digit verification code.",
	})
}

// Login handles password sign-in and reconciles the profile.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Email and password are required"})
		return
	}

	ident, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}
	outcome, err := h.reconciler.OnSignIn(r.Context(), ident, false)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, outcome)
}

// FederatedSignIn handles a verified federated assertion and reconciles the
// profile, routing first-time users into profile completion.
func (h *AccountHandler) FederatedSignIn(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Provider == "" || req.Subject == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Provider, subject, and email are required"})
		return
	}

	ident, err := h.provider.SignInFederated(r.Context(), auth.FederatedUser{
		Provider:    req.Provider,
		Subject:     req.Subject,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(w, "FederatedSignIn", err)
		return
	}
	outcome, err := h.reconciler.OnSignIn(r.Context(), ident, true)
	if err != nil {
		h.writeError(w, "FederatedSignIn", err)
		return
	}
	h.writeSession(w, r, http.StatusOK, outcome)
}

// Session restores an ambient session: it reconciles the profile for the
// authenticated user without minting a new token.
func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	uid, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "User ID not found in token"})
		return
	}
	outcome, err := h.reconciler.Restore(r.Context(), uid)
	if err != nil {
		h.writeError(w, "Session", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Profile:         toProfileResponse(outcome.Profile),
		NeedsCompletion: outcome.NeedsCompletion,
	})
}

// Logout revokes the live session.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "User ID not found in token"})
		return
	}
	if err := h.tokens.Invalidate(r.Context(), uid); err != nil {
		h.logger.Error("Failed to invalidate session", zap.String("uid", uid), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericErrorMessage})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "logged_out"})
}

// GetProfile returns the account view.
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "User ID not found in token"})
		return
	}
	profile, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		h.writeError(w, "GetProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile applies the account-edit form.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "User ID not found in token"})
		return
	}
	var req profileFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	profile, err := h.reconciler.UpdateAccount(r.Context(), uid, session.ProfileEdit{
		Name:       req.Name,
		Phone:      req.Phone,
		Street:     req.Street,
		Suburb:     req.Suburb,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// CompleteProfile applies the profile-completion form shown after a
// first-time federated sign-in.
func (h *AccountHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "User ID not found in token"})
		return
	}
	var req profileFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	profile, err := h.reconciler.CompleteProfile(r.Context(), uid, session.CompletionInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Street:     req.Street,
		Suburb:     req.Suburb,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.writeError(w, "CompleteProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *AccountHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, outcome *session.Outcome) {
	token, err := h.tokens.Issue(r.Context(), outcome.Profile.UID)
	if err != nil {
		h.logger.Error("Failed to issue session token", zap.String("uid", outcome.Profile.UID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericErrorMessage})
		return
	}
	writeJSON(w, status, sessionResponse{
		Token:           token,
		Profile:         toProfileResponse(outcome.Profile),
		NeedsCompletion: outcome.NeedsCompletion,
	})
}

func (h *AccountHandler) writeError(w http.ResponseWriter, op string, err error) {
	status, message := lookupFriendly(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
	} else {
		h.logger.Warn("Request rejected", zap.String("op", op), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func toProfileResponse(p *entity.UserProfile) profileResponse {
	resp := profileResponse{
		UID:        p.UID,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Street:     p.Street,
		Suburb:     p.Suburb,
		City:       p.City,
		Province:   p.Province,
		PostalCode: p.PostalCode,
		Address:    p.Address,
		Role:       p.Role,
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
