package http

import (
	"errors"
	"net/http"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// expensesPage is the data for the expense list template.
type expensesPage struct {
	UserEmail string
	Expenses  []expenseView
	Total     string
}

// expenseFormPage is the data for the add and edit form templates.
type expenseFormPage struct {
	UserEmail string
	Editing   bool
	ID        int64
	Form      expenseForm
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer sess.Rollback()

	expenses, err := s.expenses.ListExpenses(r.Context(), sess)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	total, err := s.expenses.TotalExpenses(r.Context(), sess)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	page := expensesPage{
		UserEmail: user.Email,
		Total:     core.FormatAmount(total),
	}
	for _, e := range expenses {
		page.Expenses = append(page.Expenses, newExpenseView(e))
	}
	s.render(w, r, "expenses.html", page)
}

func (s *Server) handleAddExpenseForm(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)
	s.render(w, r, "expense_form.html", expenseFormPage{
		UserEmail: user.Email,
		Form:      expenseForm{Date: time.Now().Format(formDateLayout)},
	})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := readExpenseForm(r)
	expense, message := form.parse()
	if message != "" {
		form.Error = message
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "expense_form.html", expenseFormPage{UserEmail: user.Email, Form: form})
		return
	}

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer sess.Rollback()

	created, err := s.expenses.CreateExpense(r.Context(), sess, expense)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "expense created",
		log.FieldOperation, log.OpCreate, log.FieldExpenseID, created.ID)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer sess.Rollback()

	expense, err := s.expenses.GetExpense(r.Context(), sess, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.internalError(w, r, err)
		return
	}

	view := newExpenseView(expense)
	s.render(w, r, "expense_form.html", expenseFormPage{
		UserEmail: user.Email,
		Editing:   true,
		ID:        expense.ID,
		Form: expenseForm{
			Title:       view.Title,
			Category:    view.Category,
			Amount:      view.Amount,
			Date:        view.Date,
			Description: view.Description,
		},
	})
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := readExpenseForm(r)
	expense, message := form.parse()
	if message != "" {
		form.Error = message
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "expense_form.html", expenseFormPage{
			UserEmail: user.Email, Editing: true, ID: id, Form: form,
		})
		return
	}

	patch := core.ExpensePatch{
		Title:       &expense.Title,
		Category:    &expense.Category,
		Amount:      &expense.Amount,
		Date:        &expense.Date,
		Description: &expense.Description,
	}

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer sess.Rollback()

	if _, err := s.expenses.UpdateExpense(r.Context(), sess, id, patch); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "expense updated",
		log.FieldOperation, log.OpUpdate, log.FieldExpenseID, id)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer sess.Rollback()

	prior, err := s.expenses.DeleteExpense(r.Context(), sess, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "expense deleted",
		log.FieldOperation, log.OpDelete, log.FieldExpenseID, id, log.FieldTitle, prior.Title)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed",
		log.FieldPath, r.URL.Path, log.FieldError, err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
