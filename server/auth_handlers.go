package server

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/Naranpurev/devcamper/auth"
)

// clearedCookieValue is what the token cookie holds after logout.
const clearedCookieValue = "none"

// CookieOptions controls how the session cookie is issued.
type CookieOptions struct {
	Name   string
	Secure bool
}

// AuthController serves the /auth routes.
type AuthController struct {
	auther *auth.Auther
	store  auth.UserStore
	cookie CookieOptions

	// resetURLBase is the absolute prefix reset tokens are appended to
	// in the password reset email.
	resetURLBase string
}

func NewAuthController(auther *auth.Auther, store auth.UserStore, cookie CookieOptions, resetURLBase string) *AuthController {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthController{
		auther:       auther,
		store:        store,
		cookie:       cookie,
		resetURLBase: resetURLBase,
	}
}

type registerPayload struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     auth.UserRole `json:"role"`
}

func (p registerPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
	)
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

type updateDetailsPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p updateDetailsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

type updatePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (p updatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(6, 72)),
	)
}

type forgotPasswordPayload struct {
	Email string `json:"email"`
}

func (p forgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

type resetPasswordPayload struct {
	Password string `json:"password"`
}

func (p resetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
	)
}

func parsePayload(c *fiber.Ctx, out interface{ Validate() error }) error {
	if err := c.BodyParser(out); err != nil {
		return goerrors.New("could not parse request body", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("MALFORMED_BODY")
	}
	return out.Validate()
}

// Register creates an account and signs the new user in.
func (ctrl *AuthController) Register(c *fiber.Ctx) error {
	var payload registerPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	_, token, err := ctrl.auther.Register(c.UserContext(), payload.Name, payload.Email, payload.Password, payload.Role)
	if err != nil {
		return err
	}

	return ctrl.sendTokenResponse(c, fiber.StatusOK, token)
}

// Login authenticates by email and password.
func (ctrl *AuthController) Login(c *fiber.Ctx) error {
	var payload loginPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	_, token, err := ctrl.auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctrl.sendTokenResponse(c, fiber.StatusOK, token)
}

// Logout clears the session cookie. The replacement cookie expires almost
// immediately so clients drop it on their next request.
func (ctrl *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     ctrl.cookie.Name,
		Value:    clearedCookieValue,
		Expires:  time.Now().Add(10 * time.Second),
		HTTPOnly: true,
		Secure:   ctrl.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return respondData(c, fiber.StatusOK, fiber.Map{})
}

// Me returns the authenticated user.
func (ctrl *AuthController) Me(c *fiber.Ctx) error {
	return respondData(c, fiber.StatusOK, CurrentUser(c))
}

// UpdateDetails changes the authenticated user's name and email.
func (ctrl *AuthController) UpdateDetails(c *fiber.Ctx) error {
	var payload updateDetailsPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	user, err := ctrl.auther.UpdateDetails(c.UserContext(), CurrentUser(c).ID, payload.Name, payload.Email)
	if err != nil {
		return err
	}

	return respondData(c, fiber.StatusOK, user)
}

// UpdatePassword rotates the password after verifying the current one, and
// issues a fresh token.
func (ctrl *AuthController) UpdatePassword(c *fiber.Ctx) error {
	var payload updatePasswordPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	token, err := ctrl.auther.UpdatePassword(c.UserContext(), CurrentUser(c).ID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return err
	}

	return ctrl.sendTokenResponse(c, fiber.StatusOK, token)
}

// ForgotPassword emails a single-use reset link to the account holder.
func (ctrl *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var payload forgotPasswordPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	if err := ctrl.auther.ForgotPassword(c.UserContext(), payload.Email, ctrl.resetURLBase); err != nil {
		return err
	}

	return respondData(c, fiber.StatusOK, "Email sent")
}

// ResetPassword consumes a reset token and sets a new password.
func (ctrl *AuthController) ResetPassword(c *fiber.Ctx) error {
	var payload resetPasswordPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	_, token, err := ctrl.auther.ResetPassword(c.UserContext(), c.Params("resettoken"), payload.Password)
	if err != nil {
		return err
	}

	return ctrl.sendTokenResponse(c, fiber.StatusOK, token)
}

func (ctrl *AuthController) sendTokenResponse(c *fiber.Ctx, status int, token string) error {
	c.Cookie(&fiber.Cookie{
		Name:     ctrl.cookie.Name,
		Value:    token,
		Expires:  time.Now().Add(ctrl.auther.TokenService().TTL()),
		HTTPOnly: true,
		Secure:   ctrl.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Status(status).JSON(Envelope{Success: true, Token: token})
}
