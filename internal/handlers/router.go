package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/middleware"
)

type RouterConfig struct {
	Identities     *IdentityHandlers
	Admins         *AdminHandlers
	Courses        *CourseHandlers
	Auth           *middleware.AuthMiddleware
	OTPRateLimit   func(http.Handler) http.Handler
	AllowedOrigins []string
	// UploadDir is served under /uploads/ when set.
	UploadDir string
	Logger    *logrus.Logger
}

func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recover(cfg.Logger))
	router.Use(middleware.LoggingMiddleware(cfg.Logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	if cfg.UploadDir != "" {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))),
		).Methods("GET")
	}

	rateLimit := cfg.OTPRateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}
	admin := cfg.Auth.RequireAdmin

	api := router.PathPrefix("/api/v1").Subrouter()

	ids := cfg.Identities
	identities := api.PathPrefix("/identities/{kind}").Subrouter()
	identities.Handle("/signup-otp", rateLimit(http.HandlerFunc(ids.SignupOTP))).Methods("POST", "OPTIONS")
	identities.Handle("/login-otp", rateLimit(http.HandlerFunc(ids.LoginOTP))).Methods("POST", "OPTIONS")
	identities.HandleFunc("/verify-otp", ids.VerifyOTP).Methods("POST", "OPTIONS")
	identities.HandleFunc("/check-auth", ids.CheckAuth).Methods("GET", "OPTIONS")
	identities.HandleFunc("/logout", ids.Logout).Methods("POST", "OPTIONS")
	identities.Handle("", admin(http.HandlerFunc(ids.List))).Methods("GET", "OPTIONS")
	identities.Handle("/{id}", admin(http.HandlerFunc(ids.Get))).Methods("GET", "OPTIONS")
	identities.Handle("/{id}", admin(http.HandlerFunc(ids.Update))).Methods("PUT", "OPTIONS")
	identities.Handle("/{id}", admin(http.HandlerFunc(ids.Delete))).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/admin/login", cfg.Admins.Login).Methods("POST", "OPTIONS")
	api.Handle("/admin/me", admin(http.HandlerFunc(cfg.Admins.Me))).Methods("GET", "OPTIONS")

	courses := cfg.Courses
	api.HandleFunc("/courses", courses.List).Methods("GET", "OPTIONS")
	api.Handle("/courses", admin(http.HandlerFunc(courses.Create))).Methods("POST", "OPTIONS")
	api.HandleFunc("/courses/{id}", courses.Get).Methods("GET", "OPTIONS")
	api.Handle("/courses/{id}", admin(http.HandlerFunc(courses.Update))).Methods("PUT", "OPTIONS")
	api.Handle("/courses/{id}", admin(http.HandlerFunc(courses.Delete))).Methods("DELETE", "OPTIONS")

	return router
}
