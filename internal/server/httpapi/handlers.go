package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/cryptox"
	"github.com/dmitrijs2005/diycloud/internal/ledger/models"
	"github.com/dmitrijs2005/diycloud/internal/server/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForError maps the common sentinels to HTTP status codes; anything
// unrecognized is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.IntegrityCheck(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: "unavailable"})
		return
	}
	if !status.OK {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: "corrupt", Detail: status.Detail})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        userView `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeErr(w, fmt.Errorf("%w: username and password are required", common.ErrValidation))
		return
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeErr(w, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized))
			return
		}
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	ok, err := cryptox.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeErr(w, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized))
		return
	}

	// opportunistic cleanup: stale sessions expire here rather than in a
	// background job
	if err := s.sessions.DeleteExpired(ctx); err != nil {
		s.logger.Warn(ctx, "expired session purge failed", "error", err.Error())
	}

	sessionToken, err := cryptox.MakeRandHexString(32)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if err := s.sessions.Create(ctx, user.ID, sessionToken, s.cfg.SessionValidity, ip); err != nil {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Error(ctx, err.Error())
	}

	accessToken, err := auth.GenerateToken(user.ID, user.Role, sessionToken, s.jwtSecret, s.cfg.AccessTokenValidity)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	s.logger.Info(ctx, "user logged in", "username", user.Username)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.cfg.AccessTokenValidity / time.Second),
		User:        newUserView(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := identityFrom(ctx)
	if !ok {
		writeErr(w, common.ErrUnauthorized)
		return
	}

	if err := s.sessions.Delete(ctx, identity.SessionID); err != nil {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type userView struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type allocationView struct {
	CPULimit  float64 `json:"cpu_limit"`
	MemLimit  string  `json:"mem_limit"`
	DiskQuota string  `json:"disk_quota"`
	GPUAccess bool    `json:"gpu_access"`
}

func newAllocationView(a *models.ResourceAllocation) *allocationView {
	return &allocationView{
		CPULimit:  a.CPULimit,
		MemLimit:  a.MemLimit,
		DiskQuota: a.DiskQuota,
		GPUAccess: a.GPUAccess,
	}
}

type userDetail struct {
	userView
	Allocation *allocationView `json:"allocation,omitempty"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, _ := identityFrom(ctx)
	if identity == nil || identity.Role != common.RoleAdmin {
		writeErr(w, fmt.Errorf("%w: admin privileges required", common.ErrForbidden))
		return
	}

	list, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	out := make([]userDetail, 0, len(list))
	for i := range list {
		detail := userDetail{userView: newUserView(&list[i])}
		alloc, err := s.allocations.GetByUserID(ctx, list[i].ID)
		if err == nil {
			detail.Allocation = newAllocationView(alloc)
		} else if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, err.Error())
			writeErr(w, common.ErrInternal)
			return
		}
		out = append(out, detail)
	}

	writeJSON(w, http.StatusOK, out)
}

// subjectID extracts the {id} path value and enforces the self-or-admin
// access rule shared by the detail endpoints.
func (s *Server) subjectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeErr(w, common.ErrUnauthorized)
		return 0, false
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, fmt.Errorf("%w: invalid user id", common.ErrValidation))
		return 0, false
	}

	if identity.Role != common.RoleAdmin && identity.UserID != id {
		writeErr(w, fmt.Errorf("%w: access denied", common.ErrForbidden))
		return 0, false
	}

	return id, true
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subjectID(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeErr(w, fmt.Errorf("%w: user", common.ErrNotFound))
			return
		}
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	detail := userDetail{userView: newUserView(user)}
	alloc, err := s.allocations.GetByUserID(ctx, id)
	if err == nil {
		detail.Allocation = newAllocationView(alloc)
	} else if !errors.Is(err, common.ErrNotFound) {
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subjectID(w, r)
	if !ok {
		return
	}

	alloc, err := s.allocations.GetByUserID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeErr(w, fmt.Errorf("%w: no allocation for user", common.ErrNotFound))
			return
		}
		s.logger.Error(ctx, err.Error())
		writeErr(w, common.ErrInternal)
		return
	}

	writeJSON(w, http.StatusOK, newAllocationView(alloc))
}
