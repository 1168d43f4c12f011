package bootcamp

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// Bootcamp is a published listing. Every bootcamp belongs to the publisher
// or admin that created it; ownership gates update and delete.
type Bootcamp struct {
	bun.BaseModel `bun:"table:bootcamps,alias:bc"`

	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Slug          string     `bun:"slug,notnull" json:"slug,omitempty"`
	Description   string     `bun:"description,notnull" json:"description,omitempty"`
	Website       string     `bun:"website" json:"website,omitempty"`
	Phone         string     `bun:"phone" json:"phone,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	Address       string     `bun:"address" json:"address,omitempty"`
	Latitude      float64    `bun:"latitude" json:"latitude,omitempty"`
	Longitude     float64    `bun:"longitude" json:"longitude,omitempty"`
	Careers       []string   `bun:"careers" json:"careers,omitempty"`
	Housing       bool       `bun:"housing" json:"housing"`
	JobAssistance bool       `bun:"job_assistance" json:"job_assistance"`
	JobGuarantee  bool       `bun:"job_guarantee" json:"job_guarantee"`
	AcceptGI      bool       `bun:"accept_gi" json:"accept_gi"`
	AverageCost   int        `bun:"average_cost" json:"average_cost,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Slugify derives the URL slug from a listing name: lower case, runs of
// anything non-alphanumeric collapse into single dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ValidatePhone checks the phone number against the NANP rules. An empty
// number is allowed, phone is optional on a listing.
func ValidatePhone(number string) error {
	if number == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(number, "US")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "phone number could not be parsed").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("phone number is not valid", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"phone": number})
	}

	return nil
}
