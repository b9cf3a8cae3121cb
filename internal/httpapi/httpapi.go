package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/report"
	"restopos/backend/internal/service"
	"restopos/backend/internal/store"
	"restopos/backend/internal/ticket"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

type Options struct {
	AllowedOrigin string
	// LoginPerMinute bounds login attempts per client address.
	LoginPerMinute int
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		loginLimiter:  newAttemptLimiter(opts.LoginPerMinute, time.Minute),
	}
}

// attemptLimiter keeps one token bucket per client. Buckets idle for longer
// than idleTTL are dropped on the next call.
type attemptLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idleTTL: 2 * window,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.entries, k)
		}
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(secureHeaders)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Post("/auth/logout", a.handleLogout)
			r.Get("/auth/me", a.handleMe)

			r.Get("/day-session", a.handleDaySession)
			r.Post("/day-session/start", a.handleStartDay)
			r.Post("/day-session/end", a.handleEndDay)

			r.Route("/menu", func(r chi.Router) {
				r.Get("/", a.handleListMenu)
				r.Post("/", a.handleCreateMenuItem)
				r.Post("/reset", a.handleResetMenu)
				r.Put("/{id}", a.handleUpdateMenuItem)
				r.Delete("/{id}", a.handleDeleteMenuItem)
				r.Put("/{id}/stock", a.handleSetStock)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", a.handleListCategories)
				r.Post("/", a.handleCreateCategory)
				r.Put("/{id}", a.handleRenameCategory)
				r.Delete("/{id}", a.handleDeleteCategory)
			})

			r.Get("/settings", a.handleGetSettings)
			r.Patch("/settings", a.handleUpdateSettings)
			r.Put("/settings/stations", a.handleStationAssignment)
			r.Put("/settings/manager-permissions", a.handleManagerPermissions)

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", a.handleListCustomers)
				r.Post("/", a.handleCreateCustomer)
				r.Put("/{id}", a.handleUpdateCustomer)
				r.Delete("/{id}", a.handleDeleteCustomer)
			})
			r.Route("/users", func(r chi.Router) {
				r.Get("/", a.handleListUsers)
				r.Post("/", a.handleCreateUser)
				r.Put("/{id}", a.handleUpdateUser)
				r.Delete("/{id}", a.handleDeleteUser)
				r.Post("/{id}/reset-pin", a.handleResetPIN)
			})

			r.Get("/tables", a.handleTables)
			r.Get("/takeaways", a.handleTakeaways)
			r.Post("/takeaways/counter/reset", a.handleResetTakeawayCounter)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", a.handleListOrders)
				r.Post("/", a.handleCreateOrder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", a.handleGetOrder)
					r.Delete("/", a.handleDiscardOrder)
					r.Post("/items", a.handleAddItem)
					r.Patch("/items/{lineID}", a.handleUpdateLine)
					r.Delete("/items/{lineID}", a.handleRemoveLine)
					r.Post("/discounts", a.handleAddDiscount)
					r.Delete("/discounts/{discountID}", a.handleRemoveDiscount)
					r.Put("/customer", a.handleAssignCustomer)
					r.Delete("/customer", a.handleRemoveCustomer)
					r.Post("/send", a.handleSendToKitchen)
					r.Post("/bill", a.handlePresentBill)
					r.Post("/pay", a.handlePay)
					r.Post("/cancel", a.handleCancel)
					r.Post("/split", a.handleSplit)
					r.Put("/kitchen-status", a.handleKitchenStatus)
					r.Get("/receipt", a.handleReceipt)
					r.Get("/tickets/{station}", a.handleTicket)
				})
			})
			r.Get("/stations/{station}/orders", a.handleStationOrders)

			r.Get("/reports/sales", a.handleSalesReport)
			r.Get("/reports/cancellations", a.handleCancellationReport)
			r.Post("/admin/clear-sales", a.handleClearSales)
		})
	})

	return r
}

// requireAuth resolves the bearer token to an actor whose role and permissions
// follow the current user directory and settings, so a manager toggle or a
// role change applies on the next request.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		revoked, err := a.service.TokenRevoked(r.Context(), actor.TokenID)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, errors.New("session has ended, sign in again"))
			return
		}
		actor, err = a.service.ResolveActor(r.Context(), actor)
		if errors.Is(err, service.ErrUnknownUser) {
			writeError(w, http.StatusUnauthorized, errors.New("account no longer exists, sign in again"))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, token, expiresAt, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	perms, err := a.service.PermissionsFor(r.Context(), user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("[auth] login username=%s role=%s", user.Username, user.Role)

	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        user,
		Permissions: perms.List(),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Logout(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user": domain.UserAccount{
			ID:       actor.UserID,
			Name:     actor.Name,
			Username: actor.Username,
			Role:     actor.Role,
		},
		"permissions": actor.Permissions.List(),
	})
}

// accessLog writes one line per request once the handler has returned.
func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		log.Printf("%s %s %d %s %s", r.Method, r.URL.Path, ww.Status(), time.Since(startedAt), middleware.GetReqID(r.Context()))
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps service and store errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalid),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrNothingToSend),
		errors.Is(err, service.ErrSplitNotAllowed),
		errors.Is(err, report.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownUser):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, service.ErrDayNotStarted),
		errors.Is(err, service.ErrOpenOrders),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderLocked),
		errors.Is(err, service.ErrTableHasOpenBills),
		errors.Is(err, service.ErrTakeawayInUse),
		errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrSelfDelete),
		errors.Is(err, ticket.ErrNoTicket),
		errors.Is(err, ticket.ErrNoLines):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":        err.Error(),
			"menu_item_id": stockErr.MenuItemID,
			"remaining":    stockErr.Remaining,
		})
		return
	}
	writeError(w, statusFor(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
