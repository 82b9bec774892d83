package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaekwang-park/taskscribe/internal/http/handler"
	"github.com/jaekwang-park/taskscribe/internal/service"
)

// Services are the handlers' dependencies.
type Services struct {
	Auth   *service.AuthService
	Tasks  *service.TaskService
	Checks map[string]handler.Check
}

func NewRouter(svcs Services, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", handler.NewHealthHandler(svcs.Checks))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Handle("/api/auth/", handler.NewAuthHandler(svcs.Auth))

	taskHandler := handler.NewTaskHandler(svcs.Tasks)
	mux.Handle("/api/tasks", taskHandler)
	mux.Handle("/api/tasks/", taskHandler)

	return mux
}
