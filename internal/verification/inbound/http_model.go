package inbound

type IssueRequest struct {
	Phone string `json:"phone"`
}

type IssueResponse struct {
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	Code             string `json:"code,omitempty"`
}

type VerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

type StatusResponse struct {
	Active           bool `json:"active"`
	ExpiresInSeconds int  `json:"expires_in_seconds"`
}
