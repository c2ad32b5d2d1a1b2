package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stake-plus/sevenkey-bot/src/actions/core"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

var _ core.Module = (*Module)(nil)

// PendingLister returns snapshots of live verification records.
type PendingLister interface {
	List() []verification.Record
}

// UserCounter reports how many members are verified.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Check is a named dependency probe used by /healthz.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Options configures the status server.
type Options struct {
	Addr        string
	CORSOrigins []string
	Pending     PendingLister
	Users       UserCounter
	Gatherer    prometheus.Gatherer
	Checks      []Check
}

type pendingView struct {
	ID          uint64    `json:"id"`
	RequesterID string    `json:"requester_id"`
	Game        string    `json:"game"`
	Username    string    `json:"username"`
	Country     string    `json:"country,omitempty"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds the gin engine serving health, pending requests and metrics.
func New(opts Options) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, opts)
	return g
}

func attachRoutes(r *gin.Engine, opts Options) {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(opts.CORSOrigins) == 0 || (len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true
		for _, check := range opts.Checks {
			if err := check.Probe(ctx); err != nil {
				healthy = false
				checks[check.Name] = err.Error()
				continue
			}
			checks[check.Name] = "ok"
		}
		code := http.StatusOK
		status := "ok"
		if !healthy {
			code = http.StatusServiceUnavailable
			status = "degraded"
		}
		c.JSON(code, gin.H{"status": status, "checks": checks})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/pending", func(c *gin.Context) {
			records := opts.Pending.List()
			out := make([]pendingView, 0, len(records))
			for _, rec := range records {
				out = append(out, pendingView{
					ID:          rec.ID,
					RequesterID: rec.Requester.ID,
					Game:        string(rec.Profile.Game),
					Username:    rec.Profile.Username,
					Country:     rec.Profile.Country,
					State:       string(rec.State),
					CreatedAt:   rec.CreatedAt,
				})
			}
			c.JSON(http.StatusOK, gin.H{"pending": out, "count": len(out)})
		})

		v1.GET("/stats", func(c *gin.Context) {
			resp := gin.H{"pending": len(opts.Pending.List())}
			if opts.Users != nil {
				n, err := opts.Users.Count(c.Request.Context())
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
					return
				}
				resp["verified"] = n
			}
			c.JSON(http.StatusOK, resp)
		})
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Module runs the status server alongside the bot.
type Module struct {
	srv *http.Server
}

func NewModule(opts Options) *Module {
	return &Module{srv: &http.Server{
		Addr:              opts.Addr,
		Handler:           New(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Name implements actions.Module.
func (m *Module) Name() string { return "status" }

func (m *Module) Start(ctx context.Context) error {
	if m.srv.Addr == "" {
		return fmt.Errorf("status: listen address is empty")
	}
	go func() {
		log.Printf("status: listening on %s", m.srv.Addr)
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("status: server stopped: %v", err)
		}
	}()
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("status: shutdown: %v", err)
	}
}
