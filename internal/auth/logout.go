package auth

import (
	"net/http"
	"os"

	"github.com/saulo-duarte/chronos-prep/internal/config"
)

type Handler struct {
	cookieDomain string
}

func NewHandler() *Handler {
	return &Handler{cookieDomain: os.Getenv("COOKIE_DOMAIN")}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	config.JSON(w, http.StatusOK, map[string]string{
		"message": "logout successful",
	})
}
