package www

import (
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"robopool/store"
)

const (
	sessionName     = "robopool-session"
	defaultAdmin    = "admin"
	defaultPassword = "admin"
	minPasswordLen  = 8
)

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "robopool-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // served on the plant LAN behind the EWM gateway
	s.Options.SameSite = http.SameSiteLaxMode
	s.Options.MaxAge = 8 * 60 * 60
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, ok := session.Values["authenticated"].(bool)
	return ok && auth
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actor names the logged-in user for audit rows.
func (h *Handlers) actor(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return "system"
	}
	username, _ := session.Values["username"].(string)
	if username == "" {
		return "system"
	}
	return username
}

func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	n, err := db.CountAdminUsers()
	if err != nil || n > 0 {
		return
	}
	hash, err := hashPassword(defaultPassword)
	if err != nil {
		return
	}
	if err := db.CreateAdminUser(defaultAdmin, hash); err != nil {
		log.Printf("auth: create default admin: %v", err)
		return
	}
	log.Printf("auth: created default admin user %q; change its password", defaultAdmin)
}

func (h *Handlers) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := h.actor(r)
	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	if len(next) < minPasswordLen {
		http.Error(w, "new password too short", http.StatusBadRequest)
		return
	}

	db := h.engine.DB()
	user, err := db.GetAdminUser(username)
	if err != nil || !checkPassword(user.PasswordHash, current) {
		http.Error(w, "current password is incorrect", http.StatusForbidden)
		return
	}
	hash, err := hashPassword(next)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.SetAdminPassword(username, hash); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	db.AppendAudit("admin", username, "password_changed", "", "", username)
	log.Printf("auth: password changed for %s", username)
	http.Redirect(w, r, "/config?saved=password", http.StatusSeeOther)
}
