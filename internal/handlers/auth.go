package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	defaultAfterLogin  = "/dashboard"
	signInFailedText   = "Invalid email or password"
	weakPasswordNotice = "Tip: a stronger password has 12+ characters with upper and lower case letters and digits."
)

type AuthHandler struct {
	pages
	Identity         Identity
	Sessions         Sessions
	Events           Publisher
	ResetRedirectURL string
}

// NewAuthHandler создает обработчик входа, регистрации и восстановления пароля.
func NewAuthHandler(c *catalog.Catalog, provider Identity, sessions Sessions, events Publisher, resetRedirectURL string) *AuthHandler {
	return &AuthHandler{
		pages:            pages{catalog: c},
		Identity:         provider,
		Sessions:         sessions,
		Events:           events,
		ResetRedirectURL: resetRedirectURL,
	}
}

type RecoveryRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	ExpiresIn    int    `json:"expires_in" validate:"gte=0"`
}

type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

type SessionResponse struct {
	User *models.User `json:"user"`
}

// LoginPage рендерит форму входа.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	next := safeNext(c.QueryParam("next"))
	if _, ok := auth.UserFromContext(c); ok {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return h.render(c, http.StatusOK, "login.html", "Sign in", "login", view.AuthData{Next: c.QueryParam("next")})
}

// Login выполняет вход и открывает серверную сессию.
func (h *AuthHandler) Login(c echo.Context) error {
	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", view.AuthData{Error: "Please enter your email and password"})
	}
	form.Email = normalizeEmail(form.Email)
	data := view.AuthData{Email: form.Email, Next: form.Next}

	if err := c.Validate(&form); err != nil {
		data.Error = "Please enter your email and password"
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", data)
	}

	provider, err := h.Identity.SignInWithPassword(c.Request().Context(), form.Email, form.Password)
	if err != nil {
		data.Error = providerMessage(err, signInFailedText)
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", data)
	}

	session, err := h.Sessions.Start(c, provider)
	if err != nil {
		data.Error = "Could not start your session, please try again"
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", data)
	}
	h.publish(c, auth.EventSignedIn, &session.User)

	return c.Redirect(http.StatusSeeOther, safeNext(data.Next))
}

// SignupPage рендерит форму регистрации.
func (h *AuthHandler) SignupPage(c echo.Context) error {
	if _, ok := auth.UserFromContext(c); ok {
		return c.Redirect(http.StatusSeeOther, defaultAfterLogin)
	}
	return h.render(c, http.StatusOK, "signup.html", "Create account", "signup", view.AuthData{})
}

// Signup регистрирует пользователя. Если провайдер требует подтверждения
// почты, сессия не открывается.
func (h *AuthHandler) Signup(c echo.Context) error {
	var form SignupForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusOK, "signup.html", "Create account", "signup", view.AuthData{Error: "Please check the form"})
	}
	form.Email = normalizeEmail(form.Email)
	form.FullName = strings.TrimSpace(form.FullName)
	data := view.AuthData{Email: form.Email, FullName: form.FullName}

	if err := c.Validate(&form); err != nil {
		data.Error = formProblem(err, "Please check the form", signupMessages, passwordMessages)
		return h.render(c, http.StatusOK, "signup.html", "Create account", "signup", data)
	}

	result, err := h.Identity.SignUp(c.Request().Context(), identity.SignUpParams{
		Email:    data.Email,
		Password: form.Password,
		FullName: data.FullName,
	})
	if err != nil {
		data.Error = providerMessage(err, "Could not create your account")
		return h.render(c, http.StatusOK, "signup.html", "Create account", "signup", data)
	}

	if result.Session == nil || result.Session.AccessToken == "" {
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", view.AuthData{
			Email:   data.Email,
			Message: "Check your email to confirm your account, then sign in.",
		})
	}

	session, err := h.Sessions.Start(c, *result.Session)
	if err != nil {
		return h.render(c, http.StatusOK, "login.html", "Sign in", "login", view.AuthData{
			Email: data.Email,
			Error: "Your account was created but the session could not start. Please sign in.",
		})
	}
	h.publish(c, auth.EventSignedIn, &session.User)

	if auth.RatePassword(form.Password) == auth.PasswordWeak {
		setFlash(c, weakPasswordNotice)
	}
	return c.Redirect(http.StatusSeeOther, defaultAfterLogin)
}

// ResetPage рендерит форму сброса пароля.
func (h *AuthHandler) ResetPage(c echo.Context) error {
	return h.render(c, http.StatusOK, "reset-password.html", "Reset password", "login", view.AuthData{})
}

// Reset отправляет письмо со ссылкой для сброса пароля.
func (h *AuthHandler) Reset(c echo.Context) error {
	var form ResetForm
	bindErr := c.Bind(&form)
	form.Email = normalizeEmail(form.Email)
	data := view.AuthData{Email: form.Email}

	if bindErr != nil || c.Validate(&form) != nil {
		data.Error = "Please enter a valid email"
		return h.render(c, http.StatusOK, "reset-password.html", "Reset password", "login", data)
	}

	if err := h.Identity.ResetPasswordForEmail(c.Request().Context(), data.Email, h.ResetRedirectURL); err != nil {
		data.Error = providerMessage(err, "Could not send the reset email")
		return h.render(c, http.StatusOK, "reset-password.html", "Reset password", "login", data)
	}

	data.Message = "If an account exists for this email, a reset link is on its way."
	return h.render(c, http.StatusOK, "reset-password.html", "Reset password", "login", data)
}

// Recovery открывает сессию по токенам из ссылки восстановления пароля.
func (h *AuthHandler) Recovery(c echo.Context) error {
	var req RecoveryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "recovery link is incomplete")
	}

	user, err := h.Identity.GetUser(c.Request().Context(), req.AccessToken)
	if err != nil {
		return unauthorized(c)
	}

	session, err := h.Sessions.Start(c, identity.Session{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresIn:    req.ExpiresIn,
		User:         user,
	})
	if err != nil {
		return serverError(c)
	}
	h.publish(c, auth.EventPasswordRecovery, &session.User)

	return c.JSON(http.StatusOK, RedirectResponse{Redirect: "/settings"})
}

// Logout закрывает сессию у провайдера и на сервере.
func (h *AuthHandler) Logout(c echo.Context) error {
	session, ok := h.Sessions.End(c)
	if ok {
		// Серверная сессия уже удалена, ошибка провайдера выходу не мешает.
		_ = h.Identity.SignOut(c.Request().Context(), session.AccessToken)
		h.publish(c, auth.EventSignedOut, nil)
	}

	setFlash(c, "You have been signed out.")
	return c.Redirect(http.StatusSeeOther, "/")
}

// Session возвращает текущего пользователя или null.
func (h *AuthHandler) Session(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.JSON(http.StatusOK, SessionResponse{})
	}
	return c.JSON(http.StatusOK, SessionResponse{User: &user})
}

// publish sends a sign-in state change to the other tabs of this browser.
func (h *AuthHandler) publish(c echo.Context, event auth.Event, user *models.User) {
	if h.Events == nil {
		return
	}
	h.Events.Publish(deviceID(c), string(event), user)
}

// safeNext допускает только локальные пути, чтобы не было открытого редиректа.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultAfterLogin
	}
	return next
}

// providerMessage returns the provider's message for client errors and the
// fallback otherwise.
func providerMessage(err error, fallback string) string {
	var providerErr *identity.Error
	if errors.As(err, &providerErr) && providerErr.Message != "" && providerErr.StatusCode < http.StatusInternalServerError {
		return providerErr.Message
	}
	return fallback
}
