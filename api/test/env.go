package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmilosz/storecart/api"
	"github.com/jmilosz/storecart/api/middleware"
	"github.com/jmilosz/storecart/core/claims"
	"github.com/jmilosz/storecart/core/product"
	"github.com/jmilosz/storecart/database"
	"github.com/jmilosz/storecart/random"
	"github.com/jmilosz/storecart/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// TestEnv hosts the full API over a throwaway sqlite database. The schema is
// the same embedded migration SQL the Postgres deployment runs.
type TestEnv struct {
	DB         *sqlx.DB
	Server     *httptest.Server
	URL        string
	UserID     string
	UserToken  string
	AdminToken string
}

func NewTestEnv(t *testing.T) (*TestEnv, error) {
	t.Helper()

	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	path := filepath.Join(t.TempDir(), "api.db")
	db, err := sqlx.Open("sqlite", "file:"+path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening test db: %w", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Schema(context.Background(), db); err != nil {
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	userToken, err := random.String(32)
	if err != nil {
		return nil, err
	}
	adminToken, err := random.String(32)
	if err != nil {
		return nil, err
	}

	userID := validate.GenerateID()
	verifier := middleware.StaticTokens{
		userToken:  {UserID: userID, Role: claims.RoleUser},
		adminToken: {UserID: validate.GenerateID(), Role: claims.RoleAdmin},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mux := api.APIMux(api.APIConfig{
		Log:      logger,
		DB:       db,
		Verifier: verifier,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &TestEnv{
		DB:         db,
		Server:     srv,
		URL:        srv.URL,
		UserID:     userID,
		UserToken:  userToken,
		AdminToken: adminToken,
	}, nil
}

// Do sends a JSON request with the given bearer token and decodes the
// response body into out when provided.
func (e *TestEnv) Do(t *testing.T, token, method, path string, body interface{}, out interface{}, wantStatus int) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	r, err := http.NewRequest(method, e.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := e.Server.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != wantStatus {
		data, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: status %s, want %d (body: %s)", method, path, w.Status, wantStatus, data)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func (e *TestEnv) createProductOK(t *testing.T, name string, price int64) product.Product {
	t.Helper()

	pnew := product.ProductNew{
		Name:        name,
		Description: name + " description",
		ImageURL:    "/img/" + name + ".png",
		Price:       price,
	}

	var p product.Product
	e.Do(t, e.AdminToken, http.MethodPost, "/products", pnew, &p, http.StatusCreated)
	return p
}
