package testmodels

import "github.com/go-openapi/strfmt"

type User struct {

	// Unique identifier for the user.
	// Required: true
	ID string `json:"id"`

	// Display name.
	// Required: true
	Name string `json:"name"`

	// Contact email.
	Email string `json:"email,omitempty"`

	// Timestamp when the user was created.
	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"createdAt,omitempty"`
}

func (u *User) GetID() string   { return u.ID }
func (u *User) SetID(id string) { u.ID = id }

type Place struct {

	// Unique identifier for the place. Generated on save when empty.
	ID string `json:"id"`

	// Name of the place.
	// Required: true
	Name string `json:"name"`

	// City the place is in.
	City string `json:"city,omitempty"`

	// Rating from 1 to 5.
	Rating int `json:"rating,omitempty"`

	// Timestamp of the last visit.
	// Format: date-time
	VisitedAt *strfmt.DateTime `json:"visitedAt,omitempty"`
}

func (p *Place) GetID() string   { return p.ID }
func (p *Place) SetID(id string) { p.ID = id }
