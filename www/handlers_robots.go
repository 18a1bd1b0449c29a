package www

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"robopool/engine"
	"robopool/store"
)

func (h *Handlers) inventoryData(r *http.Request) map[string]any {
	robots, err := h.engine.DB().ListRobots()
	if err != nil {
		log.Printf("inventory: list robots: %v", err)
	}
	free := 0
	for _, rb := range robots {
		if !rb.Allocated {
			free++
		}
	}
	return map[string]any{
		"Page":          "inventory",
		"Robots":        robots,
		"FreeCount":     free,
		"Vendors":       h.engine.Fleets().Vendors(),
		"Authenticated": h.isAuthenticated(r),
	}
}

func (h *Handlers) handleInventory(w http.ResponseWriter, r *http.Request) {
	h.render(w, "inventory.html", h.inventoryData(r))
}

// handleInventoryCreate inserts a robot from the inventory form and
// re-renders the table.
func (h *Handlers) handleInventoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	robot := &store.Robot{
		ID:              strings.TrimSpace(r.FormValue("id")),
		Name:            strings.TrimSpace(r.FormValue("name")),
		Vendor:          strings.TrimSpace(r.FormValue("vendor")),
		Model:           strings.TrimSpace(r.FormValue("model")),
		Type:            strings.TrimSpace(r.FormValue("type")),
		OperationStatus: strings.TrimSpace(r.FormValue("status")),
		Allocated:       r.FormValue("flag") == store.FlagYes,
	}
	resourceID := strings.TrimSpace(r.FormValue("resource"))

	data := h.inventoryData(r)
	if robot.ID == "" || robot.Vendor == "" {
		data["Error"] = "Robot ID and vendor are required"
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, "inventory.html", data)
		return
	}
	if err := h.engine.Pool().AddRobot(robot, resourceID); err != nil {
		data["Error"] = err.Error()
		w.WriteHeader(http.StatusConflict)
		h.render(w, "inventory.html", data)
		return
	}
	h.emitRobotUpdated(r, robot.ID, "created", fmt.Sprintf("%s %s %s", robot.Vendor, robot.Type, resourceID))
	h.render(w, "inventory.html", h.inventoryData(r))
}

func (h *Handlers) handleRobotUpdate(w http.ResponseWriter, r *http.Request) {
	robot, err := h.engine.DB().GetRobot(r.FormValue("id"))
	if err != nil {
		http.Error(w, "robot not found", http.StatusNotFound)
		return
	}
	robot.Name = strings.TrimSpace(r.FormValue("name"))
	robot.Vendor = strings.TrimSpace(r.FormValue("vendor"))
	robot.Model = strings.TrimSpace(r.FormValue("model"))
	robot.Type = strings.TrimSpace(r.FormValue("type"))
	if robot.Vendor == "" {
		http.Error(w, "vendor is required", http.StatusBadRequest)
		return
	}
	if err := h.engine.Pool().UpdateRobot(robot); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.emitRobotUpdated(r, robot.ID, "updated", fmt.Sprintf("%s %s %s", robot.Name, robot.Vendor, robot.Type))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleRobotStatus(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	status := r.FormValue("status")
	if err := h.engine.Pool().SetOperationStatus(id, status); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.emitRobotUpdated(r, id, "status", status)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleRobotMap(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	resourceID := strings.TrimSpace(r.FormValue("resource"))
	if resourceID == "" {
		if err := h.engine.Pool().UnmapResource(id); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.emitRobotUpdated(r, id, "unmapped", "")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.engine.Pool().MapResource(id, resourceID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.emitRobotUpdated(r, id, "mapped", resourceID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRobotRelease frees a robot without going through its EWM resource.
func (h *Handlers) handleRobotRelease(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	robot, err := h.engine.DB().GetRobot(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if robot.ResourceID != "" {
		if _, err := h.engine.Dispatcher().Release(robot.ResourceID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	} else if err := h.engine.DB().ReleaseRobot(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.emitRobotUpdated(r, id, "released", "manual")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleRobotDelete(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	if err := h.engine.Pool().RemoveRobot(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.emitRobotUpdated(r, id, "deleted", "")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) emitRobotUpdated(r *http.Request, robotID, action, detail string) {
	h.engine.Events.Emit(engine.Event{Type: engine.EventRobotUpdated, Payload: engine.RobotUpdatedEvent{
		RobotID: robotID,
		Action:  action,
		Detail:  detail,
		Actor:   h.actor(r),
	}})
}
