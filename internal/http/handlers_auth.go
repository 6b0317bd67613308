package http

import (
	"errors"
	"net/http"
	"strings"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// authForm carries login and registration form state back into templates.
type authForm struct {
	Email string
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authForm{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, token, err := s.flow.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			s.renderStatus(w, r, http.StatusUnauthorized, "login.html", authForm{
				Email: email,
				Error: "Invalid email or password.",
			})
			return
		}
		s.logger.ErrorContext(r.Context(), "login failed",
			log.FieldOperation, log.OpLogin, log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, token)
	s.logger.InfoContext(r.Context(), "session established", log.FieldUserID, user.ID)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authForm{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	_, err := s.flow.Register(r.Context(), email, password)
	if err != nil {
		var message string
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			message = "That email is already registered."
		case errors.Is(err, core.ErrEmptyEmail):
			message = "Email is required."
		case errors.Is(err, core.ErrEmptyPassword):
			message = "Password is required."
		default:
			s.logger.ErrorContext(r.Context(), "registration failed",
				log.FieldOperation, log.OpRegister, log.FieldError, err)
			message = "Something went wrong. Please try again."
			status = http.StatusInternalServerError
		}
		s.renderStatus(w, r, status, "register.html", authForm{Email: email, Error: message})
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.flow.Logout(r.Context(), cookie.Value); err != nil {
			s.logger.ErrorContext(r.Context(), "logout failed",
				log.FieldOperation, log.OpLogout, log.FieldError, err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
