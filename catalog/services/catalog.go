package services

import (
	"log"
	"net/http"
	"os"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/storage"
	"github.com/haimhm/datacatalog/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type CatalogArgs struct {
	Audit auth.AuditLogger

	LoginRateLimit int
	MaxUploadBytes int64
	MinFreeBytes   uint64

	AllowedOrigins []string
}

type Catalog struct {
	session   SessionService
	user      UserService
	product   ProductService
	option    OptionService
	filter    FilterService
	documents DocumentService
	uploads   UploadsService

	userAuth       auth.IdentityProvider
	allowedOrigins []string
}

func NewCatalog(db *gorm.DB, storage storage.Storage, userAuth auth.IdentityProvider, args CatalogArgs) Catalog {
	return Catalog{
		session: SessionService{userAuth: userAuth, loginRateLimit: args.LoginRateLimit},
		user:    UserService{db: db, userAuth: userAuth, audit: args.Audit},
		product: ProductService{db: db, audit: args.Audit},
		option:  OptionService{db: db, audit: args.Audit},
		filter:  FilterService{db: db},
		documents: DocumentService{
			db:             db,
			storage:        storage,
			audit:          args.Audit,
			maxUploadBytes: args.MaxUploadBytes,
			minFreeBytes:   args.MinFreeBytes,
		},
		uploads:        UploadsService{storage: storage},
		userAuth:       userAuth,
		allowedOrigins: args.AllowedOrigins,
	}
}

func (c *Catalog) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: true,
	}))

	r.Group(func(r chi.Router) {
		r.Use(c.userAuth.SessionMiddleware()...)
		r.Use(auth.OriginCheck(c.allowedOrigins))

		r.Route("/api", func(r chi.Router) {
			c.session.AddRoutes(r)
			r.Mount("/users", c.user.Routes())
			r.Mount("/products", c.product.Routes())
			r.Mount("/column-options", c.option.Routes())
			r.Mount("/filters", c.filter.Routes())
			r.Mount("/dataset", c.documents.Routes())
		})

		r.Mount("/uploads", c.uploads.Routes())
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
