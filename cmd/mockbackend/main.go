// mockbackend is a self-contained fake of the shipping-comparison backend
// for local development: canned retailers, countries, and delivery data, an
// accept-anything auth flow, and in-memory comparison history. Retailers
// with no delivery data for the requested country are still listed in
// results with an empty methods array, matching the real backend contract.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/alex-user-go/shipcompare/internal/compare"
)

func main() {
	port := getEnv("PORT", "3001")
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	b := newBackend(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("POST /api/auth/register", b.register)
	mux.HandleFunc("POST /api/auth/logout", b.logout)
	mux.HandleFunc("GET /api/auth/me", b.me)
	mux.HandleFunc("GET /api/retailers", b.retailers)
	mux.HandleFunc("GET /api/retailers/{id}", b.retailerByID)
	mux.HandleFunc("GET /api/countries", b.countries)
	mux.HandleFunc("GET /api/countries/{id}", b.countryByID)
	mux.HandleFunc("POST /api/compare", b.compare)
	mux.HandleFunc("GET /api/compare/history", b.history)
	mux.HandleFunc("GET /api/compare/{id}", b.historyByID)
	mux.HandleFunc("GET /api/delivery-data", b.deliveryData)
	mux.HandleFunc("POST /api/upload/csv", b.uploadCSV)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting mock backend", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type deliveryRow struct {
	RetailerID string
	CountryID  string
	Method     compare.DeliveryMethod
}

type backend struct {
	logger *slog.Logger
	rng    *rand.Rand

	retailerList []compare.Retailer
	countryList  []compare.Country
	rows         []deliveryRow

	mu       sync.Mutex
	sessions map[string]user
	records  []compare.Record
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan"`
}

func newBackend(logger *slog.Logger) *backend {
	retailers := []compare.Retailer{
		{ID: "r-amazon", Name: "Amazon", Website: "https://amazon.com"},
		{ID: "r-asos", Name: "ASOS", Website: "https://asos.com"},
		{ID: "r-zara", Name: "Zara", Website: "https://zara.com"},
		{ID: "r-uniqlo", Name: "Uniqlo", Website: "https://uniqlo.com"},
		{ID: "r-ikea", Name: "IKEA", Website: "https://ikea.com"},
	}
	countries := []compare.Country{
		{ID: "c-pt", Name: "Portugal", Code: "PT"},
		{ID: "c-de", Name: "Germany", Code: "DE"},
		{ID: "c-jp", Name: "Japan", Code: "JP"},
	}
	rows := []deliveryRow{
		{RetailerID: "r-amazon", CountryID: "c-pt", Method: compare.DeliveryMethod{Method: "Standard", Cost: "$5.99", Duration: "5-8 business days", Carrier: "CTT"}},
		{RetailerID: "r-amazon", CountryID: "c-pt", Method: compare.DeliveryMethod{Method: "Express", Cost: "$14.50", Duration: "2-3 business days", Carrier: "DHL"}},
		{RetailerID: "r-amazon", CountryID: "c-pt", Method: compare.DeliveryMethod{Method: "Free Shipping", Cost: "Free", Duration: "8-12 business days", FreeShippingThreshold: "$49.00"}},
		{RetailerID: "r-asos", CountryID: "c-pt", Method: compare.DeliveryMethod{Method: "Standard", Cost: "$4.00", Duration: "4-7 business days", AdditionalNotes: "Tracked from dispatch"}},
		{RetailerID: "r-zara", CountryID: "c-de", Method: compare.DeliveryMethod{Method: "Standard", Cost: "€3.95", Duration: "3-5 business days"}},
		{RetailerID: "r-zara", CountryID: "c-de", Method: compare.DeliveryMethod{Method: "Next Day", Cost: "€9.95", Duration: "1 business day", Carrier: "DPD"}},
		{RetailerID: "r-uniqlo", CountryID: "c-jp", Method: compare.DeliveryMethod{Method: "Standard", Cost: "¥450", Duration: "2-4 days", Carrier: "Yamato"}},
		{RetailerID: "r-ikea", CountryID: "c-de", Method: compare.DeliveryMethod{Method: "Parcel", Cost: "€7.90", Duration: "3-6 business days"}},
	}
	return &backend{
		logger:       logger,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		retailerList: retailers,
		countryList:  countries,
		rows:         rows,
		sessions:     make(map[string]user),
	}
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email and password required"})
		return
	}
	b.issueSession(w, user{ID: uuid.New().String(), Email: creds.Email, Name: "Demo User", Plan: "free"})
}

func (b *backend) register(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name and email required"})
		return
	}
	b.issueSession(w, user{ID: uuid.New().String(), Email: data.Email, Name: data.Name, Plan: "free"})
}

func (b *backend) issueSession(w http.ResponseWriter, u user) {
	token := uuid.New().String()
	b.mu.Lock()
	b.sessions[token] = u
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "token": token, "user": u})
}

func (b *backend) logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		b.mu.Lock()
		delete(b.sessions, token)
		b.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (b *backend) me(w http.ResponseWriter, r *http.Request) {
	u, ok := b.authed(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (b *backend) authed(r *http.Request) (user, bool) {
	token := bearerToken(r)
	if token == "" {
		return user{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.sessions[token]
	return u, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

func (b *backend) retailers(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	out := make([]compare.Retailer, 0, len(b.retailerList))
	for _, ret := range b.retailerList {
		if search == "" || strings.Contains(strings.ToLower(ret.Name), search) {
			out = append(out, ret)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"retailers": out})
}

func (b *backend) retailerByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, ret := range b.retailerList {
		if ret.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"retailer": ret})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "retailer not found"})
}

func (b *backend) countries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"countries": b.countryList})
}

func (b *backend) countryByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, c := range b.countryList {
		if c.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"country": c})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "country not found"})
}

func (b *backend) compare(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}

	var req compare.ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Retailers) == 0 || req.Country == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "retailers and country required"})
		return
	}

	var country compare.Country
	for _, c := range b.countryList {
		if c.ID == req.Country {
			country = c
		}
	}
	if country.ID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "country not found"})
		return
	}

	// Simulate a little backend latency.
	time.Sleep(time.Duration(20+b.rng.Intn(80)) * time.Millisecond)

	rec := compare.Record{
		ID:        uuid.New().String(),
		Retailers: req.Retailers,
		Country:   country.Name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, rid := range req.Retailers {
		var res compare.Result
		res.Retailer.ID = rid
		res.Retailer.Name = rid
		for _, ret := range b.retailerList {
			if ret.ID == rid {
				res.Retailer.Name = ret.Name
			}
		}
		res.Country = country
		res.Methods = []compare.DeliveryMethod{}
		for _, row := range b.rows {
			if row.RetailerID == rid && row.CountryID == country.ID {
				res.Methods = append(res.Methods, row.Method)
			}
		}
		rec.Results = append(rec.Results, res)
	}

	b.mu.Lock()
	b.records = append([]compare.Record{rec}, b.records...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"comparison": rec})
}

func (b *backend) history(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	b.mu.Lock()
	records := make([]compare.Record, len(b.records))
	copy(records, b.records)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": records})
}

func (b *backend) historyByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if rec.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"comparison": rec})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "comparison not found"})
}

func (b *backend) deliveryData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := make([]map[string]any, 0, len(b.rows))
	for i, row := range b.rows {
		if rid := q.Get("retailerId"); rid != "" && rid != row.RetailerID {
			continue
		}
		if cid := q.Get("countryId"); cid != "" && cid != row.CountryID {
			continue
		}
		if m := q.Get("method"); m != "" && !strings.EqualFold(m, row.Method.Method) {
			continue
		}
		out = append(out, map[string]any{
			"id":                    uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)}).String(),
			"retailerId":            row.RetailerID,
			"countryId":             row.CountryID,
			"method":                row.Method.Method,
			"cost":                  row.Method.Cost,
			"duration":              row.Method.Duration,
			"freeShippingThreshold": row.Method.FreeShippingThreshold,
			"carrier":               row.Method.Carrier,
			"additionalNotes":       row.Method.AdditionalNotes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveryData": out})
}

func (b *backend) uploadCSV(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file field required"})
		return
	}
	_ = file.Close()
	writeJSON(w, http.StatusOK, map[string]any{"message": "import accepted", "created": 0, "updated": 0, "total": 0})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
