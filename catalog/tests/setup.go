package tests

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/database"
	"github.com/haimhm/datacatalog/catalog/database/migrations"
	"github.com/haimhm/datacatalog/catalog/services"
	"github.com/haimhm/datacatalog/catalog/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type testEnv struct {
	catalog services.Catalog
	api     chi.Router
	storage storage.Storage
	db      *gorm.DB
	audit   *bytes.Buffer
}

const (
	adminUsername = "admin123"
	adminPassword = "admin_password123"

	viewerUsername = "viewer"
	viewerPassword = "viewer_password"
)

type envOptions struct {
	loginRateLimit int
	maxUploadBytes int64
	minFreeBytes   uint64
}

func defaultEnvOptions() envOptions {
	return envOptions{loginRateLimit: 1000, maxUploadBytes: 16 << 20}
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithOptions(t, defaultEnvOptions())
}

func setupTestEnvWithOptions(t *testing.T, opts envOptions) *testEnv {
	tmpDir := t.TempDir()

	db, err := database.OpenSqlite(filepath.Join(tmpDir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}

	return setupTestEnvWithDb(t, db, filepath.Join(tmpDir, "uploads"), opts)
}

func setupTestEnvWithDb(t *testing.T, db *gorm.DB, uploadDir string, opts envOptions) *testEnv {
	if err := migrations.Run(db); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewSharedDisk(uploadDir)
	if err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}

	err = auth.EnsureBootstrapUsers(db,
		auth.BootstrapUser{Username: adminUsername, Password: adminPassword},
		auth.BootstrapUser{Username: viewerUsername, Password: viewerPassword},
	)
	if err != nil {
		t.Fatal(err)
	}

	userAuth, err := auth.NewBasicIdentityProvider(db, auth.BasicProviderArgs{
		Sessions: auth.NewSessionManager([]byte("290zcv02ai249"), time.Hour, false),
	})
	if err != nil {
		t.Fatal(err)
	}

	audit := new(bytes.Buffer)

	catalog := services.NewCatalog(db, store, userAuth, services.CatalogArgs{
		Audit:          auth.NewAuditLogger(audit),
		LoginRateLimit: opts.loginRateLimit,
		MaxUploadBytes: opts.maxUploadBytes,
		MinFreeBytes:   opts.minFreeBytes,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	return &testEnv{catalog: catalog, api: catalog.Routes(), storage: store, db: db, audit: audit}
}

func (t *testEnv) newClient() *client {
	return &client{api: t.api}
}

func (t *testEnv) adminClient() (*client, error) {
	c := t.newClient()
	err := c.login(adminUsername, adminPassword)
	return c, err
}

func (t *testEnv) viewerClient() (*client, error) {
	c := t.newClient()
	err := c.login(viewerUsername, viewerPassword)
	return c, err
}

// newUser creates a standard user through the admin api and logs in as them.
func (t *testEnv) newUser(username string) (*client, error) {
	admin, err := t.adminClient()
	if err != nil {
		return nil, err
	}

	if _, err := admin.addUser(username, username+"_password", "standard"); err != nil {
		return nil, err
	}

	c := t.newClient()
	err = c.login(username, username+"_password")
	return c, err
}
