package server

import (
	"context"
	"net/http"
	"time"

	appkafka "example.com/engagefeed/internal/broker"
	"example.com/engagefeed/internal/engagement"
	"example.com/engagefeed/internal/logger"
	"example.com/engagefeed/internal/media"
	"example.com/engagefeed/internal/middleware"
	"example.com/engagefeed/internal/recommend"
	"example.com/engagefeed/internal/store"
)

type Server struct {
	store       store.StoreInterface
	kafkaWriter appkafka.KafkaWriter
	uploader    media.Uploader

	ledger  *engagement.Ledger
	toggler *engagement.Toggler
	tracker *engagement.Tracker
	engine  *recommend.Engine
}

var logg = logger.New()

// newServer wires the engagement components on top of the store.
func newServer(st store.StoreInterface, writer appkafka.KafkaWriter, uploader media.Uploader) *Server {
	ledger := engagement.NewLedger(st)
	tracker := engagement.NewTracker(st)
	return &Server{
		store:       st,
		kafkaWriter: writer,
		uploader:    uploader,
		ledger:      ledger,
		tracker:     tracker,
		toggler:     engagement.NewToggler(st, ledger, tracker),
		engine:      recommend.New(st, ledger),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Protected endpoints with JWT authentication middleware
	mux.Handle("/posts", middleware.JWTAuth(http.HandlerFunc(s.postsHandler)))
	mux.Handle("/comments", middleware.JWTAuth(http.HandlerFunc(s.createCommentHandler)))
	mux.Handle("/likes/toggle", middleware.JWTAuth(http.HandlerFunc(s.toggleLikeHandler)))
	mux.Handle("/follows/toggle", middleware.JWTAuth(http.HandlerFunc(s.toggleFollowHandler)))
	mux.Handle("/views", middleware.JWTAuth(http.HandlerFunc(s.addViewsHandler)))
	mux.Handle("/likes/count", middleware.JWTAuth(http.HandlerFunc(s.likeCountHandler)))
	mux.Handle("/follows/count", middleware.JWTAuth(http.HandlerFunc(s.followCountHandler)))
	mux.Handle("/recommendations", middleware.JWTAuth(http.HandlerFunc(s.recommendationsHandler)))
	mux.Handle("/notifications", middleware.JWTAuth(http.HandlerFunc(s.notificationsHandler)))
	mux.Handle("/bio", middleware.JWTAuth(http.HandlerFunc(s.editBioHandler)))
	mux.Handle("/profile-image", middleware.JWTAuth(http.HandlerFunc(s.profileImageHandler)))

	// Public endpoints for registration and login (no JWT required)
	mux.Handle("/users", http.HandlerFunc(s.createUserHandler))
	mux.Handle("/login", http.HandlerFunc(s.loginHandler))

	return mux
}

// Run starts the HTTPS server with JWT-protected routes and graceful shutdown.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, uploader media.Uploader, addr string) {
	s := newServer(st, writer, uploader)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		logg.Info("server", "Starting HTTPS server on "+addr)
		// TLS: cert.pem and key.pem should be valid certificates in specified paths
		if err := srv.ListenAndServeTLS("/certs/cert.pem", "/certs/key.pem"); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
