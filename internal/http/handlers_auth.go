package httpx

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
	"github.com/jobmatcher/jm-portal/internal/service"
)

const (
	cookieOAuthState    = "oauth_state"
	cookieOAuthNonce    = "oauth_nonce"
	cookiePostLogin     = "post_login_redirect"
	oauthCookieLifetime = 600 // seconds

	loginFailedMessage = "ログインに失敗しました。メールとパスワードをご確認ください。"
)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Sessions     SessionController
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type authResponse struct {
	Session    SessionView `json:"session"`
	RedirectTo string      `json:"redirect_to"`
}

// Login returns the password login handler for one login surface.
// POST /auth/login, /auth/agent/login, /auth/admin/login.
func (h *AuthHandlers) Login(role domainauth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !h.decode(w, r, &req, func(f url.Values) {
			req = loginRequest{Email: f.Get("email"), Password: f.Get("password"), RedirectURI: f.Get("redirect_uri")}
		}) {
			return
		}

		sess, err := h.Svc.Login(r.Context(), ports.LoginInput{Email: req.Email, Password: req.Password, Role: role})
		if err != nil {
			h.writeAuthError(w, r, "login", err)
			return
		}
		h.respondAuthenticated(w, r, sess, req.RedirectURI)
	}
}

// Register handles account registration.
// POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req, func(f url.Values) {
		req = registerRequest{
			Name:        f.Get("name"),
			Email:       f.Get("email"),
			Password:    f.Get("password"),
			RedirectURI: f.Get("redirect_uri"),
		}
	}) {
		return
	}

	sess, err := h.Svc.Register(r.Context(), ports.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeAuthError(w, r, "register", err)
		return
	}
	h.respondAuthenticated(w, r, sess, req.RedirectURI)
}

// Logout clears the session.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.Logout(r.Context())

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, authResponse{Session: NewSessionView(h.Sessions.Current()), RedirectTo: "/"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type refreshResponse struct {
	Outcome service.RefreshOutcome `json:"outcome"`
	Session SessionView            `json:"session"`
}

// Refresh re-validates the current token.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	res := h.Sessions.Refresh(r.Context())
	WriteJSON(w, http.StatusOK, refreshResponse{Outcome: res.Outcome, Session: NewSessionView(res.Session)})
}

// Session returns the session read model.
// GET /api/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, NewSessionView(h.Sessions.Current()))
}

// OAuthLogin starts the redirect login flow.
// GET /auth/oauth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrProviderNotConfigured) {
			status = http.StatusNotFound
		}
		WriteError(w, ErrorParams{Code: status, ErrCode: "login_failed", Err: err})
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// OAuthCallback completes the redirect login flow.
// GET /auth/oauth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}

	stateCookie, err := r.Cookie(cookieOAuthState)
	if err != nil || state == "" || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(cookieOAuthNonce)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	sess, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	h.clearCookie(w, r, cookieOAuthState)
	h.clearCookie(w, r, cookieOAuthNonce)
	if err != nil {
		h.logger().WarnContext(r.Context(), "oauth callback failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "login_completion_failed",
			Err:     errors.New(loginFailedMessage),
		})
		return
	}

	http.Redirect(w, r, h.postLoginRedirect(w, r, sess), http.StatusFound)
}

// decode reads a JSON body, or a form body when the request is a form post.
func (h *AuthHandlers) decode(w http.ResponseWriter, r *http.Request, dst any, fromForm func(url.Values)) bool {
	if isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return false
		}
		fromForm(r.PostForm)
		return true
	}
	return DecodeJSON(w, r, dst)
}

func (h *AuthHandlers) respondAuthenticated(w http.ResponseWriter, r *http.Request, sess domainauth.Session, redirectURI string) {
	dest := homeFor(sess.Role)
	if redirectURI != "" {
		dest = safeRedirectPath(redirectURI)
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, authResponse{Session: NewSessionView(sess), RedirectTo: dest})
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// writeAuthError reports a failed login or registration. Backend rejections
// get a fixed message; validation errors name the field.
func (h *AuthHandlers) writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger().InfoContext(r.Context(), "auth."+op+" failed",
		"code", string(apperrors.GetCode(err)),
		"field", apperrors.GetField(err),
	)
	switch {
	case apperrors.IsValidation(err), apperrors.IsConflict(err), apperrors.IsUnavailable(err), apperrors.IsTimeout(err):
		WriteAppError(w, err)
	default:
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "login_failed", Err: errors.New(loginFailedMessage)})
	}
}

// homeFor is where a fresh login lands without an explicit redirect.
func homeFor(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAgent:
		return "/agent"
	case domainauth.RoleAdmin:
		return "/admin"
	default:
		return "/mypage"
	}
}

func isFormRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// wantsJSON reports whether the caller expects a JSON body instead of a redirect.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return !isFormRequest(r) && r.Header.Get("Content-Type") != ""
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors the attributes used when setting cookies so browsers drop it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect in short-lived cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	for name, value := range map[string]string{
		cookieOAuthState: p.State,
		cookieOAuthNonce: p.Nonce,
		cookiePostLogin:  p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecureRequest(r),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   oauthCookieLifetime,
		})
	}
}

// postLoginRedirect returns the saved redirect, falling back to the role's
// home, and clears the cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request, sess domainauth.Session) string {
	c, err := r.Cookie(cookiePostLogin)
	if err != nil {
		return homeFor(sess.Role)
	}
	h.clearCookie(w, r, cookiePostLogin)
	if dest := safeRedirectPath(c.Value); dest != "/" {
		return dest
	}
	return homeFor(sess.Role)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
// Browsers read "\" as "/" and drop tabs and newlines, so neither may appear.
func safeRedirectPath(candidate string) string {
	if len(candidate) == 0 || candidate[0] != '/' {
		return "/"
	}
	if len(candidate) > 1 && (candidate[1] == '/' || candidate[1] == '\\') {
		return "/"
	}
	if strings.ContainsAny(candidate, "\\\r\n\t") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
