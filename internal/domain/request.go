package domain

import "time"

type RequestType string

const (
	RequestVoice RequestType = "voice"
	RequestText  RequestType = "text"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDeclined  RequestStatus = "declined"
	StatusDisplayed RequestStatus = "displayed"
	StatusAnswered  RequestStatus = "answered"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusDisplayed, StatusAnswered:
		return true
	}
	return false
}

// Terminal statuses drop a request from every active view.
func (s RequestStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusAnswered
}

// Rank orders statuses so merges only move forward: pending, then the
// intermediate decisions, then the terminal ones.
func (s RequestStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusApproved, StatusDisplayed:
		return 1
	case StatusDeclined, StatusAnswered:
		return 2
	}
	return -1
}

// Request is a raised hand: a voice request to speak or a written question.
type Request struct {
	ID                string        `json:"id"`
	RequesterIdentity string        `json:"studentIdentity"`
	RequesterName     string        `json:"studentName"`
	Type              RequestType   `json:"type"`
	Question          string        `json:"question,omitempty"`
	CreatedAt         int64         `json:"timestamp"`
	Status            RequestStatus `json:"status"`
}

func NewRequest(identity, name string, typ RequestType, question string, now time.Time) Request {
	return Request{
		ID:                NewRequestID(),
		RequesterIdentity: identity,
		RequesterName:     name,
		Type:              typ,
		Question:          question,
		CreatedAt:         now.UnixMilli(),
		Status:            StatusPending,
	}
}

// CanTransition reports whether the teacher workflow allows from -> to for a
// request of the given type.
func CanTransition(typ RequestType, from, to RequestStatus) bool {
	switch from {
	case StatusPending:
		switch to {
		case StatusApproved:
			return typ == RequestVoice
		case StatusDisplayed:
			return typ == RequestText
		case StatusDeclined:
			return true
		}
	case StatusDisplayed:
		return to == StatusAnswered
	}
	return false
}
