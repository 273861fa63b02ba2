package inbound

import (
	"github.com/widyatama/otpgate/internal/pkg/router"
	"github.com/widyatama/otpgate/internal/verification/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

// Issue requests a verification code for a phone number.
func (h *HTTPEndpoint) Issue(r *router.Request) (any, error) {
	var req IssueRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Issue(r.Context(), usecase.IssueInput{Phone: req.Phone})
	if err != nil {
		return nil, err
	}

	return IssueResponse{
		ExpiresInSeconds: out.ExpiresIn,
		Code:             out.Code,
	}, nil
}

// Verify consumes an attempt against the active session.
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Verify(r.Context(), usecase.VerifyInput{Phone: req.Phone, Code: req.Code}); err != nil {
		return nil, err
	}

	return VerifyResponse{Verified: true}, nil
}

// Status reports whether a live session exists for a phone number.
func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	out, err := h.uc.Status(r.Context(), usecase.StatusInput{Phone: r.GetQuery("phone")})
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		Active:           out.Active,
		ExpiresInSeconds: out.ExpiresIn,
	}, nil
}
