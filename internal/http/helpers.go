package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

const formDateLayout = "2006-01-02"

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// render executes a page template, falling back to a 500 when rendering
// fails before any bytes were written.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldError, err, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// expenseView is an expense shaped for template rendering.
type expenseView struct {
	ID          int64
	Title       string
	Category    string
	Amount      string
	Date        string
	Description string
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Amount:      core.FormatAmount(e.Amount),
		Date:        e.Date.Format(formDateLayout),
		Description: e.Description,
	}
}

// expenseForm holds raw form input plus a validation error message, so a
// rejected submission re-renders with the user's values intact.
type expenseForm struct {
	Title       string
	Category    string
	Amount      string
	Date        string
	Description string
	Error       string
}

func readExpenseForm(r *http.Request) expenseForm {
	return expenseForm{
		Title:       sanitizeInput(r.Form.Get("title")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Amount:      strings.TrimSpace(r.Form.Get("amount")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
		Description: sanitizeInput(r.Form.Get("description")),
	}
}

// parse converts the form into a domain expense. The message in the second
// return value is suitable for showing to the user.
func (f expenseForm) parse() (core.Expense, string) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Expense{}, "Amount must be a valid number."
	}

	date, err := time.Parse(formDateLayout, f.Date)
	if err != nil {
		return core.Expense{}, "Date must be in YYYY-MM-DD format."
	}

	e := core.Expense{
		Title:       f.Title,
		Category:    f.Category,
		Amount:      amount,
		Date:        date,
		Description: f.Description,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, validationMessage(err)
	}
	return e, ""
}

func validationMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrEmptyTitle):
		return "Title is required and must be at most 50 characters."
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required and must be at most 50 characters."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a valid number."
	case errors.Is(err, core.ErrInvalidDate):
		return "Date is required."
	default:
		return "Invalid input: " + err.Error()
	}
}
