package transport

type CreateTemplateRequest struct {
	Key     string `json:"key" validate:"required,min=1,max=80"`
	Name    string `json:"name" validate:"required,max=200"`
	Subject string `json:"subject" validate:"required,max=500"`
	HTML    string `json:"html" validate:"required"`
}

type UpdateTemplateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Subject *string `json:"subject,omitempty" validate:"omitempty,min=1,max=500"`
	HTML    *string `json:"html,omitempty" validate:"omitempty,min=1"`
}

type PreviewTemplateRequest struct {
	Vars map[string]interface{} `json:"vars"`
}
