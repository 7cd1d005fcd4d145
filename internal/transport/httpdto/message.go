package httpdto

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
