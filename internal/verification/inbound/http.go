package inbound

import (
	"github.com/widyatama/otpgate/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/verification/issue", end.Issue)
	r.POST("/api/v1/verification/verify", end.Verify)
	r.GET("/api/v1/verification/status", end.Status)
}
