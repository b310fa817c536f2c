package api

import (
	"fmt"
	"net/http"

	_ "github.com/rohittcodes/flashio-sub001/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rohittcodes/flashio-sub001/internal/api/handlers"
	"github.com/rohittcodes/flashio-sub001/internal/api/middleware"
	"github.com/rohittcodes/flashio-sub001/internal/config"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rs/cors"
)

func SetupRouter() http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", handlers.RegisterUser)
	authMux.HandleFunc("/login", handlers.LoginUser)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	projectMux := http.NewServeMux()
	projectMux.HandleFunc("GET /", handlers.ListProjects)
	projectMux.HandleFunc("POST /", handlers.CreateProject)

	fileMux := http.NewServeMux()
	fileMux.HandleFunc("GET /{id}", handlers.GetFile)
	fileMux.HandleFunc("GET /", handlers.ListProjectFiles)
	fileMux.HandleFunc("POST /", handlers.CreateFile)
	fileMux.HandleFunc("PUT /{id}", handlers.UpdateFile)
	fileMux.HandleFunc("DELETE /{id}", handlers.DeleteFile)

	sandboxMux := http.NewServeMux()
	sandboxMux.HandleFunc("POST /instances", handlers.AcquireInstance)
	sandboxMux.HandleFunc("GET /instances/{id}", handlers.GetInstance)
	sandboxMux.HandleFunc("PATCH /instances/{id}", handlers.UpdateInstancePreview)
	sandboxMux.HandleFunc("DELETE /instances/{id}", handlers.ReleaseInstance)
	sandboxMux.HandleFunc("POST /files", handlers.SandboxFileAction)

	terminalMux := http.NewServeMux()
	terminalMux.HandleFunc("POST /sessions", handlers.StartSession)
	terminalMux.HandleFunc("POST /sessions/resize", handlers.ResizeSession)
	terminalMux.HandleFunc("POST /sessions/input", handlers.SessionInput)
	terminalMux.HandleFunc("GET /sessions/output", handlers.SessionOutput)
	terminalMux.HandleFunc("DELETE /sessions/{id}", handlers.StopSession)

	protectedMux.Handle("/projects/",
		http.StripPrefix("/projects", projectMux),
	)
	protectedMux.Handle("/files/",
		http.StripPrefix("/files", fileMux),
	)
	protectedMux.HandleFunc("POST /storage", handlers.StorageAction)
	protectedMux.Handle("/sandbox/",
		http.StripPrefix("/sandbox", sandboxMux),
	)
	protectedMux.Handle("/terminal/",
		http.StripPrefix("/terminal", terminalMux),
	)

	protectedMux.HandleFunc("/auth/logout", handlers.Logout)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	logging.Info("Router initialized")
	handler := c.Handler(mainMux)
	handler = logging.Middleware(handler)
	return handler
}
