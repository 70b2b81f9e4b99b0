package models

type MessageResponse struct {
	Message string `json:"message" example:"Attendance marked successfully"`
}

type LoginSuccessResponse struct {
	Message string `json:"message" example:"Login successful"`
	Token   string `json:"token" example:"v2.local.Ft9QcxZhJXEYyb7-bMM..."`
	UserID  string `json:"user_id" example:"507f1f77bcf86cd799439011"`
	Role    string `json:"role" example:"student"`
	Name    string `json:"name" example:"Jane Doe"`
}

type QRCodeResponse struct {
	QRCode    string      `json:"qrCode" example:"data:image/png;base64,iVBOR..."`
	Payload   interface{} `json:"payload"`
	ExpiresAt string      `json:"expires_at" example:"2026-08-31T10:05:00+07:00"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid request body"`
	Details string `json:"details,omitempty" example:"validation failed"`
}
