package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expensebook/internal/dateutil"
	"expensebook/internal/models"
	"expensebook/internal/storage"
	"expensebook/internal/validate"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var expenseRules = []validate.Rule{
	validate.Required("name", "Expense name field is required!"),
	validate.IntRange("amount", 1, math.MaxInt64, "Amount field must be a positive integer!"),
	validate.In("category", models.Categories, "Please provide a valid category!"),
}

// ExpenseListViewModel is the data passed to the expense list template.
type ExpenseListViewModel struct {
	Day      string
	Total    int64
	Expenses []models.Expense
}

// ExpenseFormViewModel is the data passed to the create/edit form template.
// On a failed submission the entered values are carried back so the user
// does not retype them.
type ExpenseFormViewModel struct {
	IsEdit     bool
	Action     string
	ExpenseID  int64
	Name       string
	Amount     string
	Category   string
	Day        string
	Categories []string
	Errors     []string
}

// ListExpenses renders the authenticated user's expenses for one day,
// taken from the date query parameter and defaulting to today.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	day, err := dateutil.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		day = time.Now()
	}

	expenses, err := h.db.ListExpensesByDay(user.ID, day)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("list expenses failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var total int64
	for _, e := range expenses {
		total += e.Amount
	}

	h.render(w, r, "list.html", ExpenseListViewModel{
		Day:      dateutil.FormatDay(day),
		Total:    total,
		Expenses: expenses,
	})
}

// NewExpenseForm renders the form to create a new expense.
func (h *Handlers) NewExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "expense_form.html", ExpenseFormViewModel{
		Action:     "/expense/newExpense",
		Day:        dateutil.Today(),
		Categories: models.Categories,
	})
}

// EditExpenseForm renders the form to edit an existing expense. The lookup
// is scoped to the current user, so a foreign identifier looks absent.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := expenseID(r)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	expense, err := h.db.GetExpense(user.ID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("load expense failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "expense_form.html", ExpenseFormViewModel{
		IsEdit:     true,
		Action:     "/expense/edit/" + strconv.FormatInt(id, 10),
		ExpenseID:  id,
		Name:       expense.Name,
		Amount:     strconv.FormatInt(expense.Amount, 10),
		Category:   expense.Category,
		Day:        dateutil.FormatDay(expense.Day),
		Categories: models.Categories,
	})
}

// CreateExpense handles the creation of a new expense.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	form, res, day := h.checkExpenseForm(r)
	if !res.OK() {
		h.renderStatus(w, r, "expense_form.html", ExpenseFormViewModel{
			Action:     "/expense/newExpense",
			Name:       form.name,
			Amount:     form.amount,
			Category:   form.category,
			Day:        form.day,
			Categories: models.Categories,
			Errors:     res.Messages(),
		}, http.StatusUnprocessableEntity)
		return
	}

	if _, err := h.db.CreateExpense(user.ID, form.name, form.amountInt, form.category, day); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("create expense failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.FlashSuccess(w, "Expense added!")
	http.Redirect(w, r, "/expense?date="+dateutil.FormatDay(day), http.StatusFound)
}

// UpdateExpense handles the update of an existing expense. It arrives as a
// POST carrying _method=PATCH, re-dispatched by the method override.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := expenseID(r)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	form, res, day := h.checkExpenseForm(r)
	if !res.OK() {
		h.renderStatus(w, r, "expense_form.html", ExpenseFormViewModel{
			IsEdit:     true,
			Action:     "/expense/edit/" + strconv.FormatInt(id, 10),
			ExpenseID:  id,
			Name:       form.name,
			Amount:     form.amount,
			Category:   form.category,
			Day:        form.day,
			Categories: models.Categories,
			Errors:     res.Messages(),
		}, http.StatusUnprocessableEntity)
		return
	}

	err = h.db.UpdateExpense(user.ID, &models.Expense{
		ID: id, Name: form.name, Amount: form.amountInt, Category: form.category, Day: day,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("update expense failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.FlashSuccess(w, "Expense updated!")
	http.Redirect(w, r, "/expense?date="+dateutil.FormatDay(day), http.StatusFound)
}

// DeleteExpense removes one of the current user's expenses. An absent or
// foreign identifier yields NotFound.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := expenseID(r)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	if err := h.db.DeleteExpense(user.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("delete expense failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.FlashSuccess(w, "Expense deleted!")
	http.Redirect(w, r, "/expense", http.StatusFound)
}

type expenseForm struct {
	name      string
	amount    string
	amountInt int64
	category  string
	day       string
}

// checkExpenseForm parses the submission and evaluates every expense rule,
// returning the raw values for re-rendering, the validation result and the
// resolved day (today when the date field is empty).
func (h *Handlers) checkExpenseForm(r *http.Request) (expenseForm, validate.Result, time.Time) {
	var form expenseForm
	if err := r.ParseForm(); err != nil {
		return form, validate.Result{Errors: []validate.FieldError{
			{Field: "form", Message: "Invalid form submission!"},
		}}, time.Time{}
	}

	form.name = strings.TrimSpace(r.PostForm.Get("name"))
	form.amount = strings.TrimSpace(r.PostForm.Get("amount"))
	form.category = r.PostForm.Get("category")
	form.day = strings.TrimSpace(r.PostForm.Get("date"))

	res := validate.Evaluate(r.PostForm, expenseRules)

	day := time.Now()
	if form.day != "" {
		parsed, err := dateutil.ParseDay(form.day)
		if err != nil {
			res.Errors = append(res.Errors, validate.FieldError{Field: "date", Message: "Invalid date value!"})
		} else {
			day = parsed
		}
	}

	form.amountInt, _ = strconv.ParseInt(form.amount, 10, 64)
	return form, res, day
}

func expenseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "expenseId"), 10, 64)
}
