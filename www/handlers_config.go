package www

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func (h *Handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	data := map[string]any{
		"Page":          "config",
		"Authenticated": h.isAuthenticated(r),
		"Config":        cfg,
		"Saved":         r.URL.Query().Get("saved"),
	}
	h.render(w, "config.html", data)
}

func (h *Handlers) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	section := r.FormValue("section")
	cfg := h.engine.AppConfig()

	cfg.Lock()
	switch section {
	case "mir":
		cfg.Mir.Hostname = r.FormValue("mir_hostname")
		if p, err := strconv.Atoi(r.FormValue("mir_port")); err == nil {
			cfg.Mir.Port = p
		}
		cfg.Mir.Endpoint = r.FormValue("mir_endpoint")
		cfg.Mir.Proxy = r.FormValue("mir_proxy")
		cfg.Mir.Username = r.FormValue("mir_username")
		// blank keeps the stored password
		if pw := r.FormValue("mir_password"); pw != "" {
			cfg.Mir.Password = pw
		}
		if d, err := time.ParseDuration(r.FormValue("mir_timeout")); err == nil {
			cfg.Mir.Timeout = d
		}
		if d, err := time.ParseDuration(r.FormValue("mir_poll_interval")); err == nil {
			cfg.Mir.PollInterval = d
		}
	case "pool":
		cfg.Pool.RobotType = r.FormValue("pool_robot_type")
		cfg.Pool.Status = r.FormValue("pool_status")
	case "messaging":
		cfg.Messaging.Backend = r.FormValue("msg_backend")
		cfg.Messaging.MQTT.Broker = r.FormValue("mqtt_broker")
		if p, err := strconv.Atoi(r.FormValue("mqtt_port")); err == nil {
			cfg.Messaging.MQTT.Port = p
		}
		cfg.Messaging.MQTT.ClientID = r.FormValue("mqtt_client_id")
		cfg.Messaging.Kafka.Brokers = splitTrim(r.FormValue("kafka_brokers"), ",")
		cfg.Messaging.CommandsTopic = r.FormValue("commands_topic")
		cfg.Messaging.EventsTopic = r.FormValue("events_topic")
	case "redis":
		cfg.Redis.Address = r.FormValue("redis_address")
		cfg.Redis.Password = r.FormValue("redis_password")
		if d, err := strconv.Atoi(r.FormValue("redis_db")); err == nil {
			cfg.Redis.DB = d
		}
	default:
		cfg.Unlock()
		http.Error(w, "unknown section", http.StatusBadRequest)
		return
	}
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		http.Error(w, "Failed to save: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Hot-reload the affected subsystem; pool criteria and redis apply on restart
	switch section {
	case "mir":
		if err := h.engine.ReconfigureFleet(); err != nil {
			http.Error(w, "Saved, but fleet reconfigure failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	case "messaging":
		h.engine.ReconfigureMessaging()
	}

	log.Printf("config: %s section saved by %s", section, h.actor(r))
	http.Redirect(w, r, "/config?saved="+section, http.StatusSeeOther)
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
