package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Origin", "Content-Type", "Cache-Control", "Accept", "Last-Event-ID"},
		ExposedHeaders:     []string{"Content-Type", "Cache-Control", "Connection"},
		AllowCredentials:   false,
		OptionsPassthrough: true,
	}))
	r.Use(noContentOptions)
	r.Use(limitBody(maxBodyBytes))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", s.handleHealth)
	r.Post("/prompt", s.handlePrompt)

	r.Route("/logs", func(r chi.Router) {
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWebSocket)
		r.Get("/list", s.handleList)
		r.Get("/tail", s.handleTail)
		r.Get("/changes", s.handleChanges)
		r.Post("/clear", s.handleClear)
		r.Post("/ingest", s.handleIngest)
	})

	r.Get("/jobs", s.handleJobs)
	r.Get("/jobs/{id}", s.handleJob)

	return r
}
