package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"accredian/referralhub/internal/model"
	"accredian/referralhub/internal/service"
	"accredian/referralhub/pkg/response"
)

const (
	msgSubmitted     = "Form submitted successfully, emails sent"
	msgFieldsMissing = "All fields are required"
	msgInvalidBody   = "invalid request body"
)

type ReferralHandler struct {
	referralService service.ReferralService
}

func NewReferralHandler(referralService service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// SubmitFormRequest binds from JSON or form bodies. Presence is checked by the
// service so that whitespace-only values are rejected the same way.
type SubmitFormRequest struct {
	ReferrerName  string `json:"referrer_name" form:"referrer_name"`
	ReferrerEmail string `json:"referrer_email" form:"referrer_email"`
	RefereeName   string `json:"referee_name" form:"referee_name"`
	RefereeEmail  string `json:"referee_email" form:"referee_email"`
	CourseName    string `json:"course_name" form:"course_name"`
}

type SubmitFormResponse struct {
	Message  string          `json:"message"`
	Referral *model.Referral `json:"referral"`
}

func (h *ReferralHandler) SubmitForm(c *gin.Context) {
	var req SubmitFormRequest
	// an empty JSON body is a submission with every field missing
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, msgInvalidBody)
		return
	}

	referral, err := h.referralService.Submit(c.Request.Context(), service.ReferralForm{
		ReferrerName:  req.ReferrerName,
		ReferrerEmail: req.ReferrerEmail,
		RefereeName:   req.RefereeName,
		RefereeEmail:  req.RefereeEmail,
		CourseName:    req.CourseName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			response.BadRequest(c, msgFieldsMissing)
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, SubmitFormResponse{
		Message:  msgSubmitted,
		Referral: referral,
	})
}
