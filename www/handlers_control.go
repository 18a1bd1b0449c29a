package www

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"robopool/fleet"
	"robopool/store"
)

// AllocatedRobotInfo is the body returned by a successful allocation.
type AllocatedRobotInfo struct {
	RobotID       string `json:"RobotId"`
	RobotVendor   string `json:"RobotVendor"`
	ResourceInEWM string `json:"ResourceInEWM"`
}

func (h *Handlers) handleAllocateFreeRobot(w http.ResponseWriter, r *http.Request) {
	robot, err := h.engine.Dispatcher().Allocate(r.URL.Query().Get("type"))
	if errors.Is(err, store.ErrNoFreeRobot) {
		h.text(w, http.StatusOK, "No available robot in pool")
		return
	}
	if err != nil {
		log.Printf("control: allocate: %v", err)
		h.text(w, http.StatusInternalServerError, "Allocation failed: "+err.Error())
		return
	}
	h.jsonOK(w, map[string]AllocatedRobotInfo{
		"AllocatedRobotInfo": {
			RobotID:       robot.ID,
			RobotVendor:   robot.Vendor,
			ResourceInEWM: robot.ResourceID,
		},
	})
}

func (h *Handlers) handleDeallocateRobot(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceId")
	robot, err := h.engine.Dispatcher().Release(resourceID)
	if errors.Is(err, store.ErrUnknownResource) {
		h.text(w, http.StatusNotFound, fmt.Sprintf("No robot associated with EWM Resource %s", resourceID))
		return
	}
	if err != nil {
		log.Printf("control: release %s: %v", resourceID, err)
		h.text(w, http.StatusInternalServerError, "Release failed: "+err.Error())
		return
	}
	h.text(w, http.StatusOK, fmt.Sprintf("Releasing robot %s corresponding to EWM Resource %s to pool", robot.ID, resourceID))
}

func (h *Handlers) handleMoveRobotToBin(w http.ResponseWriter, r *http.Request) {
	binID := chi.URLParam(r, "binId")
	resourceID := chi.URLParam(r, "resourceId")
	move, err := h.engine.Dispatcher().MoveToBin(resourceID, binID)
	if err != nil {
		h.moveError(w, resourceID, err)
		return
	}
	h.text(w, http.StatusAccepted, fmt.Sprintf("Moving Robot %s of Vendor %s (associated with EWM Resource %s) to Bin %s",
		move.RobotName, move.Vendor, resourceID, binID))
}

type moveToPositionRequest struct {
	Position fleet.Position `json:"position"`
	MapName  string         `json:"map_name"`
}

func (h *Handlers) handleMoveRobotToPosition(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceId")
	var req moveToPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.text(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	move, err := h.engine.Dispatcher().MoveToPosition(resourceID, req.Position, req.MapName)
	if err != nil {
		h.moveError(w, resourceID, err)
		return
	}
	h.text(w, http.StatusAccepted, fmt.Sprintf("Moving Robot %s of Vendor %s (associated with EWM Resource %s) to Position %s",
		move.RobotName, move.Vendor, resourceID, req.Position.Name))
}

func (h *Handlers) moveError(w http.ResponseWriter, resourceID string, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownResource):
		h.text(w, http.StatusNotFound, "Cannot Move Robot since No Robot Associated With Provided Resource")
	case errors.Is(err, fleet.ErrNoBackend):
		h.text(w, http.StatusNotImplemented, "No implementation yet for this vendor: "+err.Error())
	default:
		log.Printf("control: move for %s: %v", resourceID, err)
		h.text(w, http.StatusInternalServerError, "Move failed: "+err.Error())
	}
}

func (h *Handlers) text(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, msg)
}
