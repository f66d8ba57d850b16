package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"charity/internal/domain"
	"charity/internal/volunteer"
)

func (a *App) VolunteersRegister(w http.ResponseWriter, r *http.Request) {
	actor := a.requireActor(w, r)
	if actor == nil {
		return
	}
	var decl domain.Declaration
	if !a.decode(w, r, &decl) {
		return
	}
	reg, err := a.Volunteers.Register(r.Context(), chi.URLParam(r, "projectID"), *actor, decl)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toRegistrationView(reg))
}

// VolunteerGet returns a registration to its volunteer or an admin.
func (a *App) VolunteerGet(w http.ResponseWriter, r *http.Request) {
	actor := a.requireActor(w, r)
	if actor == nil {
		return
	}
	reg, err := a.Volunteers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !actor.IsAdmin() && actor.ID != reg.VolunteerID {
		a.fail(w, r, domain.ErrForbidden)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

func (a *App) VolunteerWithdraw(w http.ResponseWriter, r *http.Request) {
	actor := a.requireActor(w, r)
	if actor == nil {
		return
	}
	reg, err := a.Volunteers.Withdraw(r.Context(), chi.URLParam(r, "id"), *actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

type activityRequest struct {
	HoursContributed *int `json:"hours_contributed"`
	TasksCompleted   *int `json:"tasks_completed"`
}

func (a *App) VolunteerActivity(w http.ResponseWriter, r *http.Request) {
	actor := a.requireActor(w, r)
	if actor == nil {
		return
	}
	var req activityRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.HoursContributed == nil && req.TasksCompleted == nil {
		a.error(w, http.StatusBadRequest, "validation_error", "hours_contributed or tasks_completed is required")
		return
	}
	if (req.HoursContributed != nil && *req.HoursContributed < 0) || (req.TasksCompleted != nil && *req.TasksCompleted < 0) {
		a.error(w, http.StatusBadRequest, "validation_error", "activity values must not be negative")
		return
	}
	reg, err := a.Volunteers.RecordActivity(r.Context(), chi.URLParam(r, "id"), *actor, domain.Activity{
		Hours: req.HoursContributed,
		Tasks: req.TasksCompleted,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

func (a *App) AdminProjectVolunteers(w http.ResponseWriter, r *http.Request) {
	status := domain.VolunteerStatus(r.URL.Query().Get("status"))
	items, err := a.Volunteers.ListByProject(r.Context(), chi.URLParam(r, "projectID"), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]registrationView, 0, len(items))
	for i := range items {
		out = append(out, toRegistrationView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func (a *App) AdminVolunteerReview(w http.ResponseWriter, r *http.Request) {
	reviewer := a.requireActor(w, r)
	if reviewer == nil {
		return
	}
	var dec volunteer.Decision
	if !a.decode(w, r, &dec) {
		return
	}
	reg, err := a.Volunteers.Review(r.Context(), chi.URLParam(r, "id"), *reviewer, dec)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

func (a *App) AdminVolunteerActivate(w http.ResponseWriter, r *http.Request) {
	reg, err := a.Volunteers.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

func (a *App) AdminVolunteerComplete(w http.ResponseWriter, r *http.Request) {
	reg, err := a.Volunteers.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

func (a *App) AdminVolunteerSuspend(w http.ResponseWriter, r *http.Request) {
	reviewer := a.requireActor(w, r)
	if reviewer == nil {
		return
	}
	var req suspendRequest
	if !a.decode(w, r, &req) {
		return
	}
	reg, err := a.Volunteers.Suspend(r.Context(), chi.URLParam(r, "id"), *reviewer, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRegistrationView(reg))
}

func (a *App) AdminVolunteerDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Volunteers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
