package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"github.com/Naranpurev/devcamper/auth"
)

// UsersController serves the admin-only /users routes.
type UsersController struct {
	users auth.Users
}

func NewUsersController(users auth.Users) *UsersController {
	return &UsersController{users: users}
}

type createUserPayload struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     auth.UserRole `json:"role"`
}

func (p createUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
	)
}

type updateUserPayload struct {
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  auth.UserRole `json:"role"`
}

func (p updateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, is.Email),
	)
}

// List returns users page by page.
func (ctrl *UsersController) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 25)
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	records, count, err := ctrl.users.List(c.UserContext(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return respondList(c, records, count)
}

// Get returns a single user by id.
func (ctrl *UsersController) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctrl.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, record)
}

// Create adds a user. Unlike self-registration an admin may assign any role,
// including admin.
func (ctrl *UsersController) Create(c *fiber.Ctx) error {
	var payload createUserPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return err
	}

	record, err := ctrl.users.Register(c.UserContext(), &auth.User{
		Name:         payload.Name,
		Email:        payload.Email,
		Role:         payload.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if auth.IsUniqueViolation(err) {
			return auth.ErrDuplicateEmail
		}
		return err
	}

	record.PasswordHash = ""
	return respondData(c, fiber.StatusCreated, record)
}

// Update modifies a user's name, email, or role.
func (ctrl *UsersController) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var payload updateUserPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	record, err := ctrl.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	if payload.Name != "" {
		record.Name = payload.Name
	}
	if payload.Email != "" {
		record.Email = payload.Email
	}
	if payload.Role != "" {
		record.Role = payload.Role
	}

	updated, err := ctrl.users.Update(c.UserContext(), record)
	if err != nil {
		if auth.IsUniqueViolation(err) {
			return auth.ErrDuplicateEmail
		}
		return err
	}

	updated.PasswordHash = ""
	return respondData(c, fiber.StatusOK, updated)
}

// Delete removes a user.
func (ctrl *UsersController) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := ctrl.users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, fiber.Map{})
}
