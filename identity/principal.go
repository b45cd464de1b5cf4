package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no principal matches a lookup.
var ErrNotFound = errors.New("identity: principal not found")

// Image is a principal's optional profile picture.
type Image struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Principal is any authenticatable entity. PasswordHash never leaves the
// process in JSON.
type Principal struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenantId,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Image        *Image `json:"image,omitempty"`
}

// Public returns a copy of p safe to hand to clients, with the image URL
// prefixed by baseURL when both are set.
func (p Principal) Public(baseURL string) Principal {
	out := p
	out.PasswordHash = ""
	if p.Image != nil {
		img := *p.Image
		if baseURL != "" {
			img.URL = baseURL + img.URL
		}
		out.Image = &img
	}
	return out
}

// Repository looks principals up. tenantID is empty for global roles and
// restricts the lookup to one tenant otherwise.
type Repository interface {
	FindByID(ctx context.Context, tenantID, id string) (Principal, error)
	FindByEmail(ctx context.Context, tenantID, email string) (Principal, error)
}
