package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/view"
)

type SettingsHandler struct {
	pages
	Identity Identity
	Sessions Sessions
	Profiles Profiles
	Events   Publisher
}

// NewSettingsHandler создает обработчик настроек аккаунта и профиля.
func NewSettingsHandler(c *catalog.Catalog, provider Identity, sessions Sessions, profiles Profiles, events Publisher) *SettingsHandler {
	return &SettingsHandler{
		pages:    pages{catalog: c},
		Identity: provider,
		Sessions: sessions,
		Profiles: profiles,
		Events:   events,
	}
}

// Settings рендерит страницу настроек.
func (h *SettingsHandler) Settings(c echo.Context) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}
	return h.renderSettings(c, session, "", "")
}

// ProfileName меняет отображаемое имя у провайдера и в сессии.
func (h *SettingsHandler) ProfileName(c echo.Context) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	var form ProfileNameForm
	if err := c.Bind(&form); err != nil {
		return h.renderSettings(c, session, invalidFieldsText, "")
	}
	form.FullName = strings.TrimSpace(form.FullName)
	if err := c.Validate(&form); err != nil {
		return h.renderSettings(c, session, signupMessages["FullName"], "")
	}

	user, err := h.Identity.UpdateUser(c.Request().Context(), session.AccessToken, identity.UserUpdate{FullName: &form.FullName})
	if err != nil {
		return h.renderSettings(c, session, providerMessage(err, "Could not update your name"), "")
	}

	session.User = user.Model()
	if err := h.Sessions.Save(c.Request().Context(), session); err != nil {
		return h.renderSettings(c, session, "Could not update your session", "")
	}
	c.Set(auth.ContextSessionKey, session)
	h.publishUpdated(session.User)

	return h.renderSettings(c, session, "", "Name updated")
}

// Financial сохраняет финансовый профиль из формы.
func (h *SettingsHandler) Financial(c echo.Context) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	patch, err := bindFinancial(c)
	if err != nil {
		return h.renderSettings(c, session, invalidFieldsText, "")
	}

	if _, err := h.Profiles.Update(c.Request().Context(), session.User.ID, patch); err != nil {
		return h.renderSettings(c, session, "Could not save your profile", "")
	}

	return h.renderSettings(c, session, "", "Saved")
}

// Password меняет пароль. Слабый пароль принимается с подсказкой.
func (h *SettingsHandler) Password(c echo.Context) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}

	var form PasswordForm
	if err := c.Bind(&form); err != nil {
		return h.renderSettings(c, session, invalidFieldsText, "")
	}
	if err := c.Validate(&form); err != nil {
		return h.renderSettings(c, session, formProblem(err, invalidFieldsText, passwordMessages), "")
	}
	password := form.Password

	user, err := h.Identity.UpdateUser(c.Request().Context(), session.AccessToken, identity.UserUpdate{Password: &password})
	if err != nil {
		return h.renderSettings(c, session, providerMessage(err, "Could not update your password"), "")
	}
	h.publishUpdated(user.Model())

	message := "Password updated"
	if auth.RatePassword(password) == auth.PasswordWeak {
		message += ". " + weakPasswordNotice
	}
	return h.renderSettings(c, session, "", message)
}

// ProfileAPI возвращает финансовый профиль текущего пользователя.
func (h *SettingsHandler) ProfileAPI(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, h.Profiles.Load(c.Request().Context(), user.ID))
}

// UpdateProfileAPI частично обновляет финансовый профиль.
func (h *SettingsHandler) UpdateProfileAPI(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var patch profile.Patch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&patch); err != nil {
		return validationFailed(c, err)
	}

	updated, err := h.Profiles.Update(c.Request().Context(), user.ID, patch)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, updated)
}

func (h *SettingsHandler) renderSettings(c echo.Context, session models.Session, errText, message string) error {
	data := view.SettingsData{
		Profile:  h.Profiles.Load(c.Request().Context(), session.User.ID),
		FullName: session.User.FullName,
		Error:    errText,
		Message:  message,
	}
	return h.render(c, http.StatusOK, "settings.html", "Settings", "settings", data)
}

// publishUpdated notifies every stream of the account, on any browser.
func (h *SettingsHandler) publishUpdated(user models.User) {
	if h.Events == nil {
		return
	}
	h.Events.Publish(user.ID, string(auth.EventUserUpdated), &user)
}
