package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

type PermissionRequest struct {
	RoomName       string `json:"roomName"`
	TargetIdentity string `json:"targetIdentity"`
	TargetName     string `json:"targetName"`
	Action         string `json:"action"`
	TeacherToken   string `json:"teacherToken"`
}

// SetPermission is the general promote/demote path used by the teacher's
// participant list.
func (o *Orchestrator) SetPermission(ctx context.Context, req PermissionRequest) error {
	if req.RoomName == "" || req.TargetIdentity == "" {
		return domain.ErrMissingField
	}
	action, err := domain.ParsePermissionAction(req.Action)
	if err != nil {
		return err
	}
	_, transport, err := o.verifyAdmin(req.TeacherToken, req.RoomName)
	if err != nil {
		return err
	}
	return o.Permissions.Apply(ctx, transport, domain.SessionID(req.RoomName), req.TargetIdentity, action)
}

type RequestSlot struct {
	RoomName          string               `json:"roomName"`
	RequestID         string               `json:"requestId"`
	RequesterIdentity string               `json:"requesterIdentity"`
	Status            domain.RequestStatus `json:"status,omitempty"`
	Token             string               `json:"token,omitempty"`
	TeacherToken      string               `json:"teacherToken,omitempty"`
}

func (s RequestSlot) validate() error {
	if s.RoomName == "" || s.RequestID == "" || s.RequesterIdentity == "" {
		return domain.ErrMissingField
	}
	return nil
}

// ClaimRequest reserves the requester's single pending slot.
func (o *Orchestrator) ClaimRequest(ctx context.Context, s RequestSlot) error {
	if err := s.validate(); err != nil {
		return err
	}
	claims, err := o.verifyMember(s.Token, s.RoomName)
	if err != nil {
		return err
	}
	if claims.Identity != s.RequesterIdentity {
		return domain.ErrForbidden
	}
	ok, err := o.Ledger.Claim(ctx, domain.SessionID(s.RoomName), s.RequesterIdentity, s.RequestID)
	if err != nil {
		return fmt.Errorf("claim request slot: %w", err)
	}
	if !ok {
		return domain.ErrRequestPending
	}
	return nil
}

// ApproveRequest is the workflow scoped approval path: it grants publish
// rights to the requester through the coordinator and frees the slot.
func (o *Orchestrator) ApproveRequest(ctx context.Context, s RequestSlot) error {
	if err := s.validate(); err != nil {
		return err
	}
	_, transport, err := o.verifyAdmin(s.TeacherToken, s.RoomName)
	if err != nil {
		return err
	}
	room := domain.SessionID(s.RoomName)
	if err := o.Permissions.Grant(ctx, transport, room, s.RequesterIdentity); err != nil {
		return err
	}
	o.release(ctx, room, s)
	log.Info().Str("module", "app.orch").Str("room", s.RoomName).Str("request", s.RequestID).Msg("request approved")
	return nil
}

// ResolveRequest frees the slot after a decline or an answer. Without a
// teacher token the requester may withdraw its own claim.
func (o *Orchestrator) ResolveRequest(ctx context.Context, s RequestSlot) error {
	if err := s.validate(); err != nil {
		return err
	}
	if !s.Status.Terminal() && s.Status != domain.StatusDisplayed {
		return domain.ErrInvalidTransition
	}
	if s.TeacherToken == "" {
		claims, err := o.verifyMember(s.Token, s.RoomName)
		if err != nil {
			return err
		}
		if claims.Identity != s.RequesterIdentity {
			return domain.ErrForbidden
		}
	} else if _, _, err := o.verifyAdmin(s.TeacherToken, s.RoomName); err != nil {
		return err
	}
	o.release(ctx, domain.SessionID(s.RoomName), s)
	return nil
}

func (o *Orchestrator) release(ctx context.Context, room domain.SessionID, s RequestSlot) {
	if err := o.Ledger.Release(ctx, room, s.RequesterIdentity, s.RequestID); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("room", s.RoomName).Str("request", s.RequestID).Msg("release request slot")
	}
}
