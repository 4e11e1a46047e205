package model

import "strings"

// ContactPersonPayload is the submitted form of a head of institute or nodal officer
type ContactPersonPayload struct {
	Name             string `json:"name" validate:"required,max=255"`
	Email            string `json:"email" validate:"required,email_address"`
	Contact          string `json:"contact" validate:"required,contact"`
	AlternateContact string `json:"alternateContact" validate:"omitempty,contact"`
}

// SubmitInstituteRequest is the registration payload accepted by POST /institute-requests/submit
type SubmitInstituteRequest struct {
	AISHECode       string               `json:"aisheCode" validate:"required,max=50"`
	InstituteType   string               `json:"instituteType" validate:"required,max=100"`
	State           string               `json:"state" validate:"required,max=100"`
	District        string               `json:"district" validate:"required,max=100"`
	UniversityName  string               `json:"universityName" validate:"required,max=255"`
	Address         string               `json:"address" validate:"required,max=1000"`
	Email           string               `json:"email" validate:"required,email_address"`
	HeadOfInstitute ContactPersonPayload `json:"headOfInstitute"`
	ModalOfficer    ContactPersonPayload `json:"modalOfficer"`
	NAACGrading     bool                 `json:"naacGrading"`
	NAACGrade       string               `json:"naacGrade" validate:"required_if=NAACGrading true,max=10"`
}

// Sanitize trims every string field and drops NUL bytes
func (r *SubmitInstituteRequest) Sanitize(clean func(string) string) {
	for _, field := range []*string{
		&r.AISHECode, &r.InstituteType, &r.State, &r.District,
		&r.UniversityName, &r.Address, &r.Email, &r.NAACGrade,
	} {
		*field = clean(*field)
	}
	r.HeadOfInstitute.sanitize(clean)
	r.ModalOfficer.sanitize(clean)
	r.Email = strings.ToLower(r.Email)
	if !r.NAACGrading {
		r.NAACGrade = ""
	}
}

func (p *ContactPersonPayload) sanitize(clean func(string) string) {
	p.Name = clean(p.Name)
	p.Email = strings.ToLower(clean(p.Email))
	p.Contact = clean(p.Contact)
	p.AlternateContact = clean(p.AlternateContact)
}

func (p ContactPersonPayload) toContactPerson() ContactPerson {
	return ContactPerson{
		Name:             p.Name,
		Email:            p.Email,
		Contact:          p.Contact,
		AlternateContact: p.AlternateContact,
	}
}

// ToInstituteRequest builds a new pending request from a validated payload
func (r *SubmitInstituteRequest) ToInstituteRequest() *InstituteRequest {
	grade := ""
	if r.NAACGrading {
		grade = r.NAACGrade
	}
	return &InstituteRequest{
		AISHECode:       r.AISHECode,
		InstituteType:   r.InstituteType,
		State:           r.State,
		District:        r.District,
		UniversityName:  r.UniversityName,
		Address:         r.Address,
		Email:           r.Email,
		HeadOfInstitute: r.HeadOfInstitute.toContactPerson(),
		ModalOfficer:    r.ModalOfficer.toContactPerson(),
		NAACGrading:     r.NAACGrading,
		NAACGrade:       grade,
		Status:          RequestStatusPending,
	}
}
