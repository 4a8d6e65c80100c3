package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbsnetwork/server/internal/auth"
	"github.com/kbsnetwork/server/internal/config"
	"github.com/kbsnetwork/server/internal/db"
	httphandler "github.com/kbsnetwork/server/internal/http"
	"github.com/kbsnetwork/server/internal/http/handlers"
	"github.com/kbsnetwork/server/internal/middleware"
	"github.com/kbsnetwork/server/internal/model"
	"github.com/kbsnetwork/server/internal/repo"
	_ "github.com/lib/pq"
)

const (
	testAdminUsername = "admin"
	testAdminPassword = "kerventz2025"
)

func TestMain(m *testing.M) {
	// Integration tests skip when DATABASE_URL is unset.
	os.Exit(m.Run())
}

// testServer holds the server and DB for integration tests
type testServer struct {
	Server      *httptest.Server
	DB          *sql.DB
	AuthService *auth.AuthService
	AdminRepo   repo.AdminRepo
	SessionRepo repo.SessionRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })

	err = RunMigrations(database)
	require.NoError(t, err, "migrations must run successfully")

	require.NoError(t, TruncateAll(ctx, database), "truncate tables")

	contactRepo := repo.NewContactRepo(database)
	adminRepo := repo.NewAdminRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	authService := auth.NewAuthService(adminRepo, sessionRepo)
	require.NoError(t, authService.EnsureDefaultAdmin(ctx, testAdminUsername, testAdminPassword), "ensure default admin")

	contactsHandler := handlers.NewContactsHandler(contactRepo)
	authHandler := handlers.NewAuthHandler(authService, false)
	adminHandler := handlers.NewAdminHandler(contactRepo)

	router := httphandler.NewRouter(contactsHandler, authHandler, adminHandler, sessionRepo, adminRepo)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		Server:      server,
		DB:          database,
		AuthService: authService,
		AdminRepo:   adminRepo,
		SessionRepo: sessionRepo,
	}
}

func (s *testServer) BaseURL() string { return s.Server.URL }

// newClient returns an HTTP client holding session cookies.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func postJSON(t *testing.T, client *http.Client, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

// login authenticates the client's cookie jar as the default admin.
func login(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/admin/login", map[string]interface{}{
		"username": testAdminUsername,
		"password": testAdminPassword,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "login must succeed; body: %s", readBody(resp))
}

func registerContact(t *testing.T, client *http.Client, baseURL, name, phone, email string) *http.Response {
	t.Helper()
	payload := map[string]interface{}{
		"name":        name,
		"phone":       phone,
		"countryCode": "+509",
	}
	if email != "" {
		payload["email"] = email
	}
	return postJSON(t, client, baseURL+"/api/contacts", payload)
}

// contactJSON mirrors the contact shape in API responses
type contactJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	CountryCode string  `json:"countryCode"`
	Email       *string `json:"email"`
	CreatedAt   string  `json:"createdAt"`
}

// messageResponse matches {"message": ...} bodies
type messageResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func TestAPIIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	baseURL := ts.BaseURL()

	t.Run("A_HealthCheck", func(t *testing.T) {
		client := newClient(t)
		resp, err := client.Get(baseURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /health must return 200")
		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body["ok"], "response must contain {\"ok\":true}")
	})

	t.Run("B_RegisterContact", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))

		resp := registerContact(t, client, baseURL, "Jean", "12345678", "")
		defer resp.Body.Close()
		body := readBody(resp)
		assert.Equal(t, http.StatusCreated, resp.StatusCode, "registration must return 201; body: %s", body)

		var res struct {
			Message string      `json:"message"`
			Contact contactJSON `json:"contact"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &res))
		assert.Equal(t, "Inscription réussie", res.Message)
		assert.Equal(t, "Jean"+model.NameSuffix, res.Contact.Name, "stored name must carry the suffix")
		assert.Equal(t, "12345678", res.Contact.Phone)
		assert.Equal(t, "+509", res.Contact.CountryCode)
	})

	t.Run("B2_RegisterDuplicatePhone", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))

		resp1 := registerContact(t, client, baseURL, "Jean", "12345678", "")
		resp1.Body.Close()
		require.Equal(t, http.StatusCreated, resp1.StatusCode)

		// second registration with the same phone, different country code
		resp2 := postJSON(t, client, baseURL+"/api/contacts", map[string]interface{}{
			"name":        "Autre",
			"phone":       "12345678",
			"countryCode": "+1",
		})
		defer resp2.Body.Close()
		body := readBody(resp2)
		assert.Equal(t, http.StatusBadRequest, resp2.StatusCode, "duplicate phone must return 400; body: %s", body)
		var res messageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &res))
		assert.Equal(t, "Ce numéro est déjà enregistré dans notre système", res.Message)

		// no second row was created
		adminClient := newClient(t)
		login(t, adminClient, baseURL)
		contacts := listContacts(t, adminClient, baseURL, "")
		assert.Len(t, contacts, 1, "duplicate registration must not create a row")
	})

	t.Run("B3_SuffixNotDoubled", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))

		resp := registerContact(t, client, baseURL, "Marie"+model.NameSuffix, "87654321", "")
		defer resp.Body.Close()
		body := readBody(resp)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
		var res struct {
			Contact contactJSON `json:"contact"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &res))
		assert.Equal(t, "Marie"+model.NameSuffix, res.Contact.Name, "suffix must not be appended twice")
	})

	t.Run("B4_RegisterValidation", func(t *testing.T) {
		client := newClient(t)
		resp := postJSON(t, client, baseURL+"/api/contacts", map[string]interface{}{
			"name":        "",
			"phone":       "",
			"countryCode": "+509",
			"email":       "not-an-email",
		})
		defer resp.Body.Close()
		body := readBody(resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
		var res messageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &res))
		assert.Equal(t, "Données invalides", res.Message)
		assert.Contains(t, res.Errors, "name")
		assert.Contains(t, res.Errors, "phone")
		assert.Contains(t, res.Errors, "email")
	})

	t.Run("C_LatestContacts", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))

		phones := []string{"100", "200", "300", "400", "500", "600"}
		for _, p := range phones {
			resp := registerContact(t, client, baseURL, "Membre"+p, p, "")
			resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			time.Sleep(10 * time.Millisecond) // distinct created_at ordering
		}

		resp, err := client.Get(baseURL + "/api/contacts/latest")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var latest []contactJSON
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
		require.Len(t, latest, 5, "latest must return at most 5 contacts")
		assert.Equal(t, "600", latest[0].Phone, "newest contact must come first")
		assert.Equal(t, "200", latest[4].Phone, "oldest of the window must come last")
	})

	t.Run("D_LoginFailuresIndistinguishable", func(t *testing.T) {
		client := newClient(t)

		wrongPassword := postJSON(t, client, baseURL+"/api/admin/login", map[string]interface{}{
			"username": testAdminUsername,
			"password": "wrong",
		})
		defer wrongPassword.Body.Close()
		wrongPasswordBody := readBody(wrongPassword)

		unknownUser := postJSON(t, client, baseURL+"/api/admin/login", map[string]interface{}{
			"username": "nobody",
			"password": "wrong",
		})
		defer unknownUser.Body.Close()
		unknownUserBody := readBody(unknownUser)

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)
		assert.Equal(t, wrongPasswordBody, unknownUserBody, "both failures must be indistinguishable")
	})

	t.Run("E_AdminGateRejectsAnonymous", func(t *testing.T) {
		client := newClient(t)
		resp, err := client.Get(baseURL + "/api/admin/contacts")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var res messageResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "Non autorisé", res.Message)
	})

	t.Run("F_AdminContactFlow", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))
		login(t, client, baseURL)

		// seed: one contact with email, one without
		email := "jean@example.com"
		resp := registerContact(t, client, baseURL, "Jean", "11111111", email)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp = registerContact(t, client, baseURL, "Marie", "22222222", "")
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		all := listContacts(t, client, baseURL, "")
		require.Len(t, all, 2)

		// search takes precedence over filter and is case-insensitive
		found := listContacts(t, client, baseURL, "search=JEAN&filter=with-email")
		require.Len(t, found, 1)
		assert.Equal(t, "11111111", found[0].Phone)

		// phone substring search
		found = listContacts(t, client, baseURL, "search=2222")
		require.Len(t, found, 1)
		assert.Equal(t, "22222222", found[0].Phone)

		withEmail := listContacts(t, client, baseURL, "filter=with-email")
		require.Len(t, withEmail, 1)
		require.NotNil(t, withEmail[0].Email)
		assert.Equal(t, email, *withEmail[0].Email)

		today := listContacts(t, client, baseURL, "filter=today")
		assert.Len(t, today, 2, "both contacts were created today")

		week := listContacts(t, client, baseURL, "filter=week")
		assert.Len(t, week, 2)

		// stats
		statsResp, err := client.Get(baseURL + "/api/admin/stats")
		require.NoError(t, err)
		defer statsResp.Body.Close()
		require.Equal(t, http.StatusOK, statsResp.StatusCode)
		var stats struct {
			TotalContacts  int           `json:"totalContacts"`
			TodayContacts  int           `json:"todayContacts"`
			WeekContacts   int           `json:"weekContacts"`
			WithEmail      int           `json:"withEmail"`
			LatestContacts []contactJSON `json:"latestContacts"`
		}
		require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&stats))
		assert.Equal(t, 2, stats.TotalContacts)
		assert.Equal(t, 2, stats.TodayContacts)
		assert.Equal(t, 2, stats.WeekContacts)
		assert.Equal(t, 1, stats.WithEmail)
		assert.Len(t, stats.LatestContacts, 2)

		// update
		newName := "Jean Renommé"
		updateResp := putJSON(t, client, baseURL+"/api/admin/contacts/"+found[0].ID, map[string]interface{}{
			"name": newName,
		})
		defer updateResp.Body.Close()
		body := readBody(updateResp)
		require.Equal(t, http.StatusOK, updateResp.StatusCode, "body: %s", body)
		var updated struct {
			Contact contactJSON `json:"contact"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &updated))
		assert.Equal(t, newName, updated.Contact.Name)

		// update of an unknown id
		missingResp := putJSON(t, client, baseURL+"/api/admin/contacts/"+uuid.NewString(), map[string]interface{}{
			"name": "X",
		})
		defer missingResp.Body.Close()
		assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)

		// delete one
		delResp := doDelete(t, client, baseURL+"/api/admin/contacts/"+found[0].ID)
		defer delResp.Body.Close()
		assert.Equal(t, http.StatusOK, delResp.StatusCode)

		// deleting again returns 404
		delAgain := doDelete(t, client, baseURL+"/api/admin/contacts/"+found[0].ID)
		defer delAgain.Body.Close()
		assert.Equal(t, http.StatusNotFound, delAgain.StatusCode)

		// delete all, then stats report zero
		delAll := doDelete(t, client, baseURL+"/api/admin/contacts")
		defer delAll.Body.Close()
		assert.Equal(t, http.StatusOK, delAll.StatusCode)

		statsResp2, err := client.Get(baseURL + "/api/admin/stats")
		require.NoError(t, err)
		defer statsResp2.Body.Close()
		var stats2 struct {
			TotalContacts int `json:"totalContacts"`
		}
		require.NoError(t, json.NewDecoder(statsResp2.Body).Decode(&stats2))
		assert.Equal(t, 0, stats2.TotalContacts, "count after delete-all must be 0")
	})

	t.Run("G_Exports", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, TruncateContacts(context.Background(), ts.DB))
		login(t, client, baseURL)

		resp := registerContact(t, client, baseURL, "Jean", "12345678", "")
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		vcfResp, err := client.Get(baseURL + "/api/admin/export/vcf")
		require.NoError(t, err)
		defer vcfResp.Body.Close()
		require.Equal(t, http.StatusOK, vcfResp.StatusCode)
		assert.Equal(t, "text/vcard; charset=utf-8", vcfResp.Header.Get("Content-Type"))
		vcf := readBody(vcfResp)
		assert.Contains(t, vcf, "FN:Jean"+model.NameSuffix+"\n")
		assert.Contains(t, vcf, "TEL:+50912345678\n")
		assert.NotContains(t, vcf, "EMAIL:", "contact without email must omit the EMAIL line")

		csvResp, err := client.Get(baseURL + "/api/admin/export/csv")
		require.NoError(t, err)
		defer csvResp.Body.Close()
		require.Equal(t, http.StatusOK, csvResp.StatusCode)
		assert.Equal(t, "text/csv; charset=utf-8", csvResp.Header.Get("Content-Type"))
		csv := readBody(csvResp)
		assert.True(t, strings.HasPrefix(csv, "\ufeffNom,Téléphone,Email,Date d'inscription\n"),
			"CSV must start with the BOM and the exact header; got %q", csv[:min(len(csv), 80)])
		assert.Contains(t, csv, `"Jean`+model.NameSuffix+`","+50912345678",""`)
	})

	t.Run("H_ExpiredSessionRejected", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		admin, err := ts.AdminRepo.GetByUsername(ctx, testAdminUsername)
		require.NoError(t, err)

		// session already past its expiry, still present in storage
		session, err := ts.SessionRepo.Create(ctx, admin.ID, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/admin/profile", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session.ID})
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expired session must be rejected before the sweep runs")

		// the sweep removes the stale row
		require.NoError(t, ts.AuthService.SweepExpiredSessions(ctx))
		_, err = ts.SessionRepo.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound, "sweep must remove the expired session row")
	})

	t.Run("I_LogoutDestroysSession", func(t *testing.T) {
		client := newClient(t)
		login(t, client, baseURL)

		profileResp, err := client.Get(baseURL + "/api/admin/profile")
		require.NoError(t, err)
		profileResp.Body.Close()
		require.Equal(t, http.StatusOK, profileResp.StatusCode)

		logoutResp := postJSON(t, client, baseURL+"/api/admin/logout", map[string]string{})
		defer logoutResp.Body.Close()
		require.Equal(t, http.StatusOK, logoutResp.StatusCode)
		var res messageResponse
		require.NoError(t, json.NewDecoder(logoutResp.Body).Decode(&res))
		assert.Equal(t, "Déconnexion réussie", res.Message)

		afterResp, err := client.Get(baseURL + "/api/admin/profile")
		require.NoError(t, err)
		defer afterResp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, afterResp.StatusCode, "session must be gone after logout")
	})

	t.Run("J_RememberMeLongCookie", func(t *testing.T) {
		client := newClient(t)
		resp := postJSON(t, client, baseURL+"/api/admin/login", map[string]interface{}{
			"username":   testAdminUsername,
			"password":   testAdminPassword,
			"rememberMe": true,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var sessionCookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == middleware.SessionCookieName {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie, "login must set the session cookie")
		assert.Equal(t, int((30*24*time.Hour)/time.Second), sessionCookie.MaxAge, "rememberMe must extend the cookie to 30 days")
		assert.True(t, sessionCookie.HttpOnly, "session cookie must be HTTP-only")
	})
}

func listContacts(t *testing.T, client *http.Client, baseURL, query string) []contactJSON {
	t.Helper()
	url := baseURL + "/api/admin/contacts"
	if query != "" {
		url += "?" + query
	}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readBody(resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, "list contacts must return 200; body: %s", body)
	var contacts []contactJSON
	require.NoError(t, json.Unmarshal([]byte(body), &contacts))
	return contacts
}

func putJSON(t *testing.T, client *http.Client, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func doDelete(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}
