package server

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/Naranpurev/devcamper/auth"
	"github.com/Naranpurev/devcamper/bootcamp"
)

// BootcampController serves the /bootcamps routes.
type BootcampController struct {
	repo     bootcamp.Bootcamps
	geocoder bootcamp.Geocoder
	logger   auth.Logger
}

func NewBootcampController(repo bootcamp.Bootcamps, geocoder bootcamp.Geocoder, logger auth.Logger) *BootcampController {
	return &BootcampController{
		repo:     repo,
		geocoder: geocoder,
		logger:   logger,
	}
}

type bootcampPayload struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Website       string   `json:"website"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email"`
	Address       string   `json:"address"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Careers       []string `json:"careers"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"job_assistance"`
	JobGuarantee  bool     `json:"job_guarantee"`
	AcceptGI      bool     `json:"accept_gi"`
	AverageCost   int      `json:"average_cost"`
}

func (p bootcampPayload) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&p.Description, validation.Required, validation.Length(1, 500)),
		validation.Field(&p.Website, is.URL),
		validation.Field(&p.Email, is.Email),
		validation.Field(&p.AverageCost, validation.Min(0)),
	); err != nil {
		return err
	}
	return bootcamp.ValidatePhone(p.Phone)
}

func (p bootcampPayload) toModel(owner uuid.UUID) *bootcamp.Bootcamp {
	return &bootcamp.Bootcamp{
		OwnerID:       owner,
		Name:          p.Name,
		Description:   p.Description,
		Website:       p.Website,
		Phone:         p.Phone,
		Email:         p.Email,
		Address:       p.Address,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		Careers:       p.Careers,
		Housing:       p.Housing,
		JobAssistance: p.JobAssistance,
		JobGuarantee:  p.JobGuarantee,
		AcceptGI:      p.AcceptGI,
		AverageCost:   p.AverageCost,
	}
}

// List returns listings page by page.
func (ctrl *BootcampController) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 25)
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	records, count, err := ctrl.repo.List(c.UserContext(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return respondList(c, records, count)
}

// Get returns a single listing by id.
func (ctrl *BootcampController) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctrl.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, record)
}

// Create publishes a new listing owned by the caller. An address without
// coordinates gets geocoded.
func (ctrl *BootcampController) Create(c *fiber.Ctx) error {
	var payload bootcampPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	record := payload.toModel(CurrentUser(c).ID)
	if err := ctrl.geocodeIfNeeded(c, record); err != nil {
		return err
	}

	created, err := ctrl.repo.Create(c.UserContext(), record)
	if err != nil {
		if auth.IsUniqueViolation(err) {
			return goerrors.New("a bootcamp with that name already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithTextCode("DUPLICATE_NAME")
		}
		return err
	}

	return respondData(c, fiber.StatusCreated, created)
}

// Update modifies a listing. Only the owner or an admin may update.
func (ctrl *BootcampController) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	existing, err := ctrl.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if err := requireOwnership(c, existing.OwnerID); err != nil {
		return err
	}

	var payload bootcampPayload
	if err := parsePayload(c, &payload); err != nil {
		return err
	}

	record := payload.toModel(existing.OwnerID)
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	if err := ctrl.geocodeIfNeeded(c, record); err != nil {
		return err
	}

	updated, err := ctrl.repo.Update(c.UserContext(), record)
	if err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, updated)
}

// Delete removes a listing. Only the owner or an admin may delete.
func (ctrl *BootcampController) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	existing, err := ctrl.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if err := requireOwnership(c, existing.OwnerID); err != nil {
		return err
	}

	if err := ctrl.repo.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respondData(c, fiber.StatusOK, fiber.Map{})
}

// WithinRadius returns listings within :distance miles of :zipcode.
func (ctrl *BootcampController) WithinRadius(c *fiber.Ctx) error {
	zipcode := c.Params("zipcode")
	miles, err := strconv.ParseFloat(c.Params("distance"), 64)
	if err != nil || miles <= 0 {
		return goerrors.New("distance must be a positive number of miles", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	lat, lng, err := ctrl.geocoder.Geocode(c.UserContext(), zipcode)
	if err != nil {
		return err
	}

	records, err := ctrl.repo.ListWithinRadius(c.UserContext(), lat, lng, miles)
	if err != nil {
		return err
	}
	return respondList(c, records, len(records))
}

func (ctrl *BootcampController) geocodeIfNeeded(c *fiber.Ctx, record *bootcamp.Bootcamp) error {
	if record.Address == "" || record.Latitude != 0 || record.Longitude != 0 {
		return nil
	}

	lat, lng, err := ctrl.geocoder.Geocode(c.UserContext(), record.Address)
	if err != nil {
		ctrl.logger.Warn("geocoding failed, storing listing without coordinates",
			"address", record.Address,
			"error", err,
		)
		return nil
	}
	record.Latitude = lat
	record.Longitude = lng
	return nil
}

func requireOwnership(c *fiber.Ctx, owner uuid.UUID) error {
	user := CurrentUser(c)
	if user == nil {
		return auth.ErrUnauthenticated
	}
	if user.Role != auth.RoleAdmin && user.ID != owner {
		return auth.ErrForbidden
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, goerrors.New("resource id is not a valid uuid", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	return id, nil
}
