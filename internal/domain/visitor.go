package domain

import "time"

type Visitor struct {
	VisitorID string    `json:"id" dynamodbav:"visitor_id"`
	SessionID string    `json:"sessionId,omitempty" dynamodbav:"session_id,omitempty"`
	UserAgent string    `json:"userAgent" dynamodbav:"user_agent"`
	IPAddress string    `json:"ipAddress" dynamodbav:"ip_address"`
	CreatedAt time.Time `json:"timestamp" dynamodbav:"created_at"`
}

type RecordVisitorRequest struct {
	UserAgent string `json:"userAgent"`
	SessionID string `json:"sessionId"`
}
