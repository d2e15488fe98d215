package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Service is the engine surface the HTTP layer needs. *goOTP.Engine
// satisfies it.
type Service interface {
	RequestOTP(ctx context.Context, email string) (*goOTP.OTPRequestResult, error)
	VerifyOTP(ctx context.Context, email, code string) (*goOTP.VerifyResult, error)
	Login(ctx context.Context, email, password string) (*goOTP.LoginResult, error)
	Register(ctx context.Context, in goOTP.RegisterInput) (goOTP.Identity, error)
	RefreshTokens(ctx context.Context, refreshToken string) (goOTP.TokenPair, error)
	RateLimitStatus(ctx context.Context, scope goOTP.Scope, limitType, identity string) (goOTP.RateLimitStatus, error)
	Identity(ctx context.Context, userID string) (goOTP.Identity, error)
	Ping(ctx context.Context) error
	Config() goOTP.Config
}

// Options configures NewRouter.
type Options struct {
	// Verifier checks access tokens on /auth/profile/. A nil Verifier
	// rejects every profile request.
	Verifier middleware.AccessVerifier
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
	// ClientIP resolves the address used for IP budgets and audit. A nil
	// resolver uses the direct peer and ignores X-Forwarded-For.
	ClientIP *middleware.IPResolver
	Logger   *zap.Logger
}

// Handler serves the auth routes.
type Handler struct {
	svc       Service
	logger    *zap.Logger
	otpLength int
	now       func() time.Time
}

// NewRouter returns the full route tree with request logging and client
// context middleware installed.
func NewRouter(svc Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		logger:    logger.Named("http"),
		otpLength: svc.Config().OTP.Length,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(opts.ClientIP.RequestContext)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/otp/request/", h.requestOTP)
		r.Post("/otp/verify/", h.verifyOTP)
		r.Post("/login/", h.login)
		r.Post("/register/", h.register)
		r.Post("/token/refresh/", h.refresh)
		r.With(middleware.RequireStrict(opts.Verifier, svc)).Get("/profile/", h.profile)
	})
	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request data", nil)
		return false
	}
	if ferr := validateRequest(dst); ferr != nil {
		switch ferr.Field {
		case "email":
			writeFailure(w, http.StatusBadRequest, CodeInvalidEmailFormat, "Invalid email format", nil)
		case "otp":
			h.writeError(w, r, goOTP.ErrInvalidOTPFormat)
		default:
			writeFailure(w, http.StatusBadRequest, CodeInvalidRequest, ferr.Message, nil)
		}
		return false
	}
	return true
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.svc.RequestOTP(r.Context(), body.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if st, err := h.svc.RateLimitStatus(r.Context(), goOTP.ScopeOTPRequestEmail, goOTP.LimitTypeEmail, res.Email); err == nil {
		writeRateLimitHeaders(w, st.Limit, st.Remaining, h.now().Add(st.ResetIn))
	} else {
		h.logger.Warn("rate limit status unavailable", zap.Error(err))
	}

	writeJSON(w, http.StatusAccepted, envelope{
		"success":    true,
		"message":    "OTP sent to your email",
		"email":      res.Email,
		"expires_in": goOTP.FormatDuration(res.ExpiresIn),
	})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.svc.VerifyOTP(r.Context(), body.Email, body.OTP)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "OTP verified successfully",
		"tokens":  newTokensView(res.Tokens, &res.User),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || validateRequest(&body) != nil {
		// Shape errors look the same as wrong credentials.
		h.writeError(w, r, goOTP.ErrInvalidCredentials)
		return
	}

	res, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Login successful",
		"tokens":  newTokensView(res.Tokens, &res.User),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if !h.decode(w, r, &body) {
		return
	}

	user, err := h.svc.Register(r.Context(), goOTP.RegisterInput{
		Email:           body.Email,
		Password:        body.Password,
		PasswordConfirm: body.PasswordConfirm,
		FirstName:       body.FirstName,
		LastName:        body.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "User registered successfully",
		"email":   user.Email,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || validateRequest(&body) != nil {
		h.writeError(w, r, goOTP.ErrInvalidToken)
		return
	}

	pair, err := h.svc.RefreshTokens(r.Context(), body.Refresh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Token refreshed",
		"tokens":  newTokensView(pair, nil),
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"user":    newUserView(user),
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}
