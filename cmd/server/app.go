package main

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/config"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/handlers"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/notify"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/settings"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/snapshot"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/storage"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/visibility"
)

// App wires every component and owns the route table.
type App struct {
	mux    *http.ServeMux
	oracle *identity.Oracle
}

// NewApp assembles the application around an open database connection.
func NewApp(db *gorm.DB, cfg *config.Config) *App {
	oracle := identity.NewOracle(cfg.App.AuthSecret, db)

	resolver := gate.NewCachedResolver(gate.NewDBResolver(db),
		time.Duration(cfg.App.ProfileTTL)*time.Second)
	g := gate.New(resolver)

	settingsCache := settings.NewCache(db, time.Duration(cfg.App.SettingsTTL)*time.Second)
	invites := invite.NewLedger(db, cfg.App.BaseURL)
	notifier := notify.NewService(db, notify.LogEmailSender{})
	renderer := &snapshot.PDFRenderer{}
	snapshots := snapshot.NewStore(db, renderer)
	vis := visibility.New(db)
	presigner := storage.NewHMACPresigner(cfg.App.AuthSecret, cfg.App.BaseURL)

	engine := lifecycle.NewEngine(db, invites, notifier, snapshots, settingsCache, vis)

	app := &App{mux: http.NewServeMux(), oracle: oracle}
	app.setupRoutes(db, cfg, engine, g, resolver, settingsCache, invites, renderer, presigner)
	return app
}

// ServeHTTP implements http.Handler, applying the identity middleware.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.oracle.Middleware(a.mux).ServeHTTP(w, r)
}

func (a *App) setupRoutes(
	db *gorm.DB,
	cfg *config.Config,
	engine *lifecycle.Engine,
	g *gate.Gate,
	resolver *gate.CachedResolver,
	settingsCache *settings.Cache,
	invites *invite.Ledger,
	renderer snapshot.Renderer,
	presigner *storage.HMACPresigner,
) {
	rh := handlers.NewRFQHandler(engine, g)
	qh := handlers.NewQuotationHandler(engine, g, renderer)
	oh := handlers.NewOrderHandler(engine, g)
	ih := handlers.NewInvoiceHandler(engine, g)
	nh := handlers.NewNotificationHandler(engine, g)
	ch := handlers.NewCompanyHandler(settingsCache, g)
	ph := handlers.NewProfileHandler(db, g, resolver)
	vh := handlers.NewInviteHandler(invites, g)
	xh := handlers.NewExternalHandler(engine)
	uh := handlers.NewUploadHandler(presigner, invites, cfg.App.UploadDir)

	// RFQ lifecycle
	a.mux.HandleFunc("POST /rfqs", rh.Create)
	a.mux.HandleFunc("GET /rfqs", rh.List)
	a.mux.HandleFunc("GET /rfqs/{number}", rh.Get)
	a.mux.HandleFunc("POST /rfqs/{number}/acknowledge", rh.Acknowledge)
	a.mux.HandleFunc("POST /rfqs/{number}/review", rh.StartReview)
	a.mux.HandleFunc("POST /rfqs/{number}/approve", rh.Approve)
	a.mux.HandleFunc("POST /rfqs/{number}/reject", rh.Reject)
	a.mux.HandleFunc("GET /rfqs/{number}/quotations", rh.Compare)
	a.mux.HandleFunc("POST /rfqs/{number}/select", rh.Select)
	a.mux.HandleFunc("POST /rfqs/{number}/convert", rh.Convert)

	// Quotations
	a.mux.HandleFunc("POST /quotations", qh.Submit)
	a.mux.HandleFunc("GET /quotations", qh.List)
	a.mux.HandleFunc("GET /quotations/{number}", qh.Get)
	a.mux.HandleFunc("GET /quotations/{number}/pdf", qh.PDF)

	// Orders
	a.mux.HandleFunc("POST /orders", oh.Create)
	a.mux.HandleFunc("GET /orders", oh.List)
	a.mux.HandleFunc("GET /orders/{number}", oh.Get)
	a.mux.HandleFunc("POST /orders/{number}/accept", oh.Accept)

	// Invoices
	a.mux.HandleFunc("POST /invoices", ih.Create)
	a.mux.HandleFunc("GET /invoices", ih.List)
	a.mux.HandleFunc("GET /invoices/{number}", ih.Get)
	a.mux.HandleFunc("POST /invoices/{number}/pay", ih.Pay)

	// Notifications
	a.mux.HandleFunc("GET /notifications", nh.List)
	a.mux.HandleFunc("POST /notifications/{id}/read", nh.MarkRead)

	// Company settings and role profiles
	a.mux.HandleFunc("GET /company", ch.Get)
	a.mux.HandleFunc("PUT /company", ch.Update)
	a.mux.HandleFunc("GET /profiles", ph.List)
	a.mux.HandleFunc("PUT /profiles/{role}", ph.Update)

	// Invites
	a.mux.HandleFunc("POST /invites", vh.Create)

	// Token-gated external surface (no portal credential)
	a.mux.HandleFunc("GET /external/context", xh.Context)
	a.mux.HandleFunc("POST /external/rfq/quote", xh.SubmitRFQQuote)
	a.mux.HandleFunc("POST /external/order/accept", xh.AcceptOrder)
	a.mux.HandleFunc("POST /external/order/invoice", xh.SubmitOrderInvoice)
	a.mux.HandleFunc("POST /external/uploads/presign", uh.Presign)
	a.mux.HandleFunc("PUT /uploads/{key}", uh.Put)
	a.mux.HandleFunc("GET /files/{key}", uh.Serve)

	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
