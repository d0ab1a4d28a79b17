package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Routes builds the application router: the method override ahead of route
// matching, static files, and the /expense and /user groups. Every expense
// route sits behind the authentication guard.
func (h *Handlers) Routes(staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(MethodOverride)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/expense", http.StatusFound)
	})

	r.Route("/expense", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/", h.ListExpenses)
		r.Get("/newExpense", h.NewExpenseForm)
		r.Post("/newExpense", h.CreateExpense)
		r.Get("/edit/{expenseId}", h.EditExpenseForm)
		r.Patch("/edit/{expenseId}", h.UpdateExpense)
		r.Delete("/delete/{expenseId}", h.DeleteExpense)
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/signup", h.SignupForm)
		r.Post("/signup", h.Signup)
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Get("/resetPW", h.ResetPasswordForm)
		r.Post("/resetPW", h.ResetPassword)
		r.Get("/newPW/{token}", h.NewPasswordForm)
		r.Patch("/newPW", h.NewPassword)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
