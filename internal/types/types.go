// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, services and validation can all import types without
// depending on each other.
//
// Each resource has three shapes:
//
//   - the record returned to clients (Student, Teacher)
//   - the create payload (StudentInput, TeacherInput), full validation
//   - the partial update payload (StudentPatch, TeacherPatch), every field
//     optional but at least one required
//
// Struct tags:
//
//  1. json:"..."     — the JSON field name on the wire.
//  2. validate:"..." — rules checked by go-playground/validator.
//  3. doc:"..."      — the field name inside the stored document.
package types

import (
	"strings"
	"time"
)

// Student is a student record as stored and returned.
// Optional fields are pointers so that absent values encode as null.
type Student struct {
	ID          string     `json:"id"          doc:"id"`
	Name        string     `json:"name"        doc:"name"`
	Age         int        `json:"age"         doc:"age"`
	Address     string     `json:"address"     doc:"address"`
	Grade       *string    `json:"grade"       doc:"grade"`
	ParentName  *string    `json:"parentName"  doc:"parentName"`
	ParentEmail *string    `json:"parentEmail" doc:"parentEmail"`
	Notes       *string    `json:"notes"       doc:"notes"`
	CreatedAt   *time.Time `json:"createdAt"   doc:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"   doc:"updatedAt"`
}

// StudentInput is the POST /api/students payload.
type StudentInput struct {
	Name        string  `json:"name"        doc:"name"                  validate:"required,min=2,max=100"`
	Age         int     `json:"age"         doc:"age"                   validate:"required,min=3,max=25"`
	Address     string  `json:"address"     doc:"address"               validate:"required,min=5,max=200"`
	Grade       *string `json:"grade"       doc:"grade,omitempty"       validate:"omitempty,max=20"`
	ParentName  *string `json:"parentName"  doc:"parentName,omitempty"  validate:"omitempty,max=100"`
	ParentEmail *string `json:"parentEmail" doc:"parentEmail,omitempty" validate:"omitempty,email"`
	Notes       *string `json:"notes"       doc:"notes,omitempty"       validate:"omitempty,max=500"`
}

// Normalize trims the free-text fields that are length checked.
func (in *StudentInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
}

// StudentPatch is the PUT /api/students/{id} payload.
type StudentPatch struct {
	Name        *string `json:"name"        doc:"name,omitempty"        validate:"omitempty,min=2,max=100"`
	Age         *int    `json:"age"         doc:"age,omitempty"         validate:"omitempty,min=3,max=25"`
	Address     *string `json:"address"     doc:"address,omitempty"     validate:"omitempty,min=5,max=200"`
	Grade       *string `json:"grade"       doc:"grade,omitempty"       validate:"omitempty,max=20"`
	ParentName  *string `json:"parentName"  doc:"parentName,omitempty"  validate:"omitempty,max=100"`
	ParentEmail *string `json:"parentEmail" doc:"parentEmail,omitempty" validate:"omitempty,email"`
	Notes       *string `json:"notes"       doc:"notes,omitempty"       validate:"omitempty,max=500"`
}

// Normalize trims the free-text fields that are length checked.
func (p *StudentPatch) Normalize() {
	trimPtr(p.Name)
	trimPtr(p.Address)
}

// Empty reports whether the patch names no field at all.
func (p *StudentPatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Address == nil && p.Grade == nil &&
		p.ParentName == nil && p.ParentEmail == nil && p.Notes == nil
}

// Teacher is a teacher record as stored and returned.
type Teacher struct {
	ID                string     `json:"id"                doc:"id"`
	Name              string     `json:"name"              doc:"name"`
	Age               int        `json:"age"               doc:"age"`
	Address           string     `json:"address"           doc:"address"`
	Subject           *string    `json:"subject"           doc:"subject"`
	Email             *string    `json:"email"             doc:"email"`
	Phone             *string    `json:"phone"             doc:"phone"`
	Qualification     *string    `json:"qualification"     doc:"qualification"`
	YearsOfExperience *int       `json:"yearsOfExperience" doc:"yearsOfExperience"`
	Notes             *string    `json:"notes"             doc:"notes"`
	CreatedAt         *time.Time `json:"createdAt"         doc:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt"         doc:"updatedAt"`
}

// TeacherInput is the POST /api/teachers payload.
type TeacherInput struct {
	Name              string  `json:"name"              doc:"name"                        validate:"required,min=2,max=100"`
	Age               int     `json:"age"               doc:"age"                         validate:"required,min=21,max=80"`
	Address           string  `json:"address"           doc:"address"                     validate:"required,min=5,max=200"`
	Subject           *string `json:"subject"           doc:"subject,omitempty"           validate:"omitempty,max=50"`
	Email             *string `json:"email"             doc:"email,omitempty"             validate:"omitempty,email"`
	Phone             *string `json:"phone"             doc:"phone,omitempty"             validate:"omitempty,max=20"`
	Qualification     *string `json:"qualification"     doc:"qualification,omitempty"     validate:"omitempty,max=100"`
	YearsOfExperience *int    `json:"yearsOfExperience" doc:"yearsOfExperience,omitempty" validate:"omitempty,min=0,max=60"`
	Notes             *string `json:"notes"             doc:"notes,omitempty"             validate:"omitempty,max=500"`
}

// Normalize trims the free-text fields that are length checked.
func (in *TeacherInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
}

// TeacherPatch is the PUT /api/teachers/{id} payload.
type TeacherPatch struct {
	Name              *string `json:"name"              doc:"name,omitempty"              validate:"omitempty,min=2,max=100"`
	Age               *int    `json:"age"               doc:"age,omitempty"               validate:"omitempty,min=21,max=80"`
	Address           *string `json:"address"           doc:"address,omitempty"           validate:"omitempty,min=5,max=200"`
	Subject           *string `json:"subject"           doc:"subject,omitempty"           validate:"omitempty,max=50"`
	Email             *string `json:"email"             doc:"email,omitempty"             validate:"omitempty,email"`
	Phone             *string `json:"phone"             doc:"phone,omitempty"             validate:"omitempty,max=20"`
	Qualification     *string `json:"qualification"     doc:"qualification,omitempty"     validate:"omitempty,max=100"`
	YearsOfExperience *int    `json:"yearsOfExperience" doc:"yearsOfExperience,omitempty" validate:"omitempty,min=0,max=60"`
	Notes             *string `json:"notes"             doc:"notes,omitempty"             validate:"omitempty,max=500"`
}

// Normalize trims the free-text fields that are length checked.
func (p *TeacherPatch) Normalize() {
	trimPtr(p.Name)
	trimPtr(p.Address)
}

// Empty reports whether the patch names no field at all.
func (p *TeacherPatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Address == nil && p.Subject == nil &&
		p.Email == nil && p.Phone == nil && p.Qualification == nil &&
		p.YearsOfExperience == nil && p.Notes == nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
