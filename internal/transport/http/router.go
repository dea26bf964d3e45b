package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpmw "github.com/cwrk-planet/signal-relay/internal/transport/http/middleware"
)

type Deps struct {
	Handler        *Handler
	WS             http.HandlerFunc
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(httpmw.RequestLogger)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// websocket endpoint, no timeout: the connection outlives the request
	r.Get("/ws", d.WS)

	r.Group(func(gr chi.Router) {
		gr.Use(chimw.Timeout(30 * time.Second))

		gr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", d.Handler.ListRooms)
			rm.Get("/{id}/participants", d.Handler.GetParticipants)
		})

		gr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		if d.Gatherer != nil {
			gr.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
		}
	})

	return r
}
