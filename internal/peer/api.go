// Package peer is the participant side of a classroom: it joins through the
// HTTP API, holds the room data channel open and feeds what arrives on it
// into the request board, the permission inbox and the caption router.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/domain"
)

// StatusError is a non-2xx API answer. It unwraps to the domain sentinel
// matching the status so callers can use errors.Is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return grants.ErrInvalidToken
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrSessionNotFound
	case http.StatusConflict:
		return domain.ErrRequestPending
	case http.StatusInternalServerError:
		if e.Message == "server misconfigured" {
			return domain.ErrNotConfigured
		}
	}
	return nil
}

// API talks to the coordination service.
type API struct {
	base *url.URL
	hc   *http.Client
}

func NewAPI(base string, hc *http.Client) (*API, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", base)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{base: u, hc: hc}, nil
}

func (a *API) Join(ctx context.Context, req orch.JoinRequest) (orch.ConnectionDetails, error) {
	q := url.Values{}
	q.Set("roomName", req.RoomCode)
	q.Set("participantName", req.ParticipantName)
	q.Set("classroom", strconv.FormatBool(req.Classroom))
	for k, v := range map[string]string{
		"role": req.Role, "language": req.Language, "region": req.Region, "org": req.Org, "pin": req.PIN,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	var out orch.ConnectionDetails
	err := a.do(ctx, http.MethodGet, "/api/connection-details?"+q.Encode(), nil, &out)
	return out, err
}

func (a *API) CreateRoom(ctx context.Context, req orch.CreateSessionRequest) (*domain.Session, error) {
	var out domain.Session
	if err := a.do(ctx, http.MethodPost, "/api/rooms", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) LookupRoom(ctx context.Context, code, org string) (*domain.Session, error) {
	path := "/api/rooms/" + url.PathEscape(code)
	if org != "" {
		path += "?org=" + url.QueryEscape(org)
	}
	var out domain.Session
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings changes a registered session's language or PIN. Teacher
// token only.
func (a *API) UpdateSettings(ctx context.Context, id domain.SessionID, teacherToken string, upd domain.SettingsUpdate) (*domain.Session, error) {
	body := struct {
		domain.SettingsUpdate
		TeacherToken string `json:"teacherToken"`
	}{upd, teacherToken}
	var out domain.Session
	if err := a.do(ctx, http.MethodPatch, "/api/rooms/"+url.PathEscape(string(id))+"/settings", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) SetPermission(ctx context.Context, req orch.PermissionRequest) error {
	return a.do(ctx, http.MethodPost, "/api/permissions/grant-or-revoke", req, nil)
}

func (a *API) ClaimRequest(ctx context.Context, s orch.RequestSlot) error {
	return a.do(ctx, http.MethodPost, "/api/requests", s, nil)
}

func (a *API) ApproveRequest(ctx context.Context, s orch.RequestSlot) error {
	return a.do(ctx, http.MethodPost, "/api/requests/approve", s, nil)
}

func (a *API) ResolveRequest(ctx context.Context, s orch.RequestSlot) error {
	return a.do(ctx, http.MethodPost, "/api/requests/resolve", s, nil)
}

// SaveSegment posts to the transcript or translation store and reports
// whether a new row was written.
func (a *API) SaveSegment(ctx context.Context, source domain.SourceKind, req orch.SegmentRequest) (bool, error) {
	path := "/api/transcripts"
	if source == domain.SourceTranslation {
		path = "/api/translations"
	}
	var out struct {
		Stored bool `json:"stored"`
	}
	err := a.do(ctx, http.MethodPost, path, req, &out)
	return out.Stored, err
}

// DataURL is the websocket endpoint of the local data channel.
func (a *API) DataURL(token string) string {
	u := *a.base
	u.Scheme = "ws"
	if a.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/api/rtc/data"
	u.RawQuery = url.Values{"access_token": {token}}.Encode()
	return u.String()
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base.ResolveReference(ref).String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, ref.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", ref.Path, err)
	}
	return nil
}
