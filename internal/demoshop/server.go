// Package demoshop serves a small storefront with the same screens, element
// ids and messages as the public saucedemo site. Browser tests run against
// it so they do not depend on the network.
package demoshop

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/ratelimit"
)

//go:embed templates/*.html
var templateFS embed.FS

// Cookie names shared by the server and the page scripts.
const (
	SessionCookie = "session-username"
	CartCookie    = "cart-contents"
)

// Built-in accounts.
const (
	StandardUser    = "standard_user"
	LockedOutUser   = "locked_out_user"
	DefaultPassword = "secret_sauce"
)

// Login and checkout messages.
const (
	msgUsernameRequired = "Epic sadface: Username is required"
	msgPasswordRequired = "Epic sadface: Password is required"
	msgLockedOut        = "Epic sadface: Sorry, this user has been locked out."
	msgBadCredentials   = "Epic sadface: Username and password do not match any user in this service"
	msgFirstName        = "Error: First Name is required"
	msgLastName         = "Error: Last Name is required"
	msgPostalCode       = "Error: Postal Code is required"
	msgLoginRequired    = "Epic sadface: You can only access '%s' when you are logged in."
)

// Server is the demo storefront.
type Server struct {
	password string
	users    map[string]bool
	locked   map[string]bool
	tmpl     *template.Template
	limiter  *ratelimit.Limiter
}

// Options configures accepted credentials. Extra users share the password.
// A non-nil RateLimit throttles each client address.
type Options struct {
	Password   string
	ExtraUsers []string
	RateLimit  *ratelimit.Config
}

func New(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"price": func(p Product) string { return p.PriceText() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("demoshop: parse templates: %w", err)
	}
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	users := map[string]bool{StandardUser: true}
	for _, u := range opts.ExtraUsers {
		users[u] = true
	}
	s := &Server{
		password: password,
		users:    users,
		locked:   map[string]bool{LockedOutUser: true},
		tmpl:     tmpl,
	}
	if opts.RateLimit != nil {
		s.limiter = ratelimit.New(*opts.RateLimit)
	}
	return s, nil
}

// Close stops the rate limiter's cleanup goroutine.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Handler returns the storefront routes wrapped in request-id, access-log and
// (when configured) rate-limit middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	var h http.Handler = mux
	if s.limiter != nil {
		h = ratelimit.Middleware(s.limiter, ratelimit.ClientKey)(h)
	}
	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("demoshop", h))
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /{$}", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /inventory.html", s.requireSession(s.handleInventory))
	mux.HandleFunc("GET /cart.html", s.requireSession(s.handleCart))
	mux.HandleFunc("GET /checkout-step-one.html", s.requireSession(s.handleCheckoutForm))
	mux.HandleFunc("POST /checkout-step-one.html", s.requireSession(s.handleCheckoutSubmit))
	mux.HandleFunc("GET /checkout-step-two.html", s.requireSession(s.handleOverview))
	mux.HandleFunc("POST /checkout-complete.html", s.requireSession(s.handleFinish))
	mux.HandleFunc("GET /checkout-complete.html", s.requireSession(s.handleComplete))
}

type pageData struct {
	Title      string
	Error      string
	Username   string
	Products   []Product
	CartIDs    map[string]bool
	CartCount  int
	Sort       string
	FirstName  string
	LastName   string
	PostalCode string
	Subtotal   string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data pageData) {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		obs.From(r.Context()).Error("render failed", "pkg", "demoshop", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	obs.From(r.Context()).Warn("request failed", "pkg", "demoshop", "path", r.URL.Path, "code", string(code), "error", err)
	http.Error(w, errs.MessageOf(err), errs.HTTPStatus(code))
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Swag Labs"}
	if from := r.URL.Query().Get("from"); from != "" {
		data.Error = fmt.Sprintf(msgLoginRequired, from)
	}
	s.render(w, r, "login.html", http.StatusOK, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, errs.Wrap(errs.InvalidFormat, "invalid form", err))
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("user-name"))
	password := r.PostForm.Get("password")

	if msg := s.checkLogin(username, password); msg != "" {
		obs.From(r.Context()).Info("login rejected", "pkg", "demoshop", "username", username)
		s.render(w, r, "login.html", http.StatusOK, pageData{Title: "Swag Labs", Error: msg, Username: username})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: username, Path: "/", HttpOnly: false, SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, "/inventory.html", http.StatusSeeOther)
}

func (s *Server) checkLogin(username, password string) string {
	switch {
	case username == "":
		return msgUsernameRequired
	case password == "":
		return msgPasswordRequired
	case s.locked[username] && password == s.password:
		return msgLockedOut
	case !s.users[username] || password != s.password:
		return msgBadCredentials
	}
	return ""
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, SessionCookie)
	clearCookie(w, CartCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || !s.users[c.Value] {
			http.Redirect(w, r, "/?from="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	sortKey := r.URL.Query().Get("sort")
	products, err := SortProducts(Catalog(), sortKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sortKey == "" {
		sortKey = SortNameAsc
	}
	ids := cartIDs(r)
	s.render(w, r, "inventory.html", http.StatusOK, pageData{
		Title:     "Products",
		Products:  products,
		CartIDs:   idSet(ids),
		CartCount: len(ids),
		Sort:      sortKey,
	})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	products := cartProducts(r)
	s.render(w, r, "cart.html", http.StatusOK, pageData{Title: "Your Cart", Products: products, CartCount: len(products)})
}

func (s *Server) handleCheckoutForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "checkout-step-one.html", http.StatusOK, pageData{
		Title:     "Checkout: Your Information",
		CartCount: len(cartIDs(r)),
	})
}

func (s *Server) handleCheckoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, errs.Wrap(errs.InvalidFormat, "invalid form", err))
		return
	}
	data := pageData{
		Title:      "Checkout: Your Information",
		FirstName:  strings.TrimSpace(r.PostForm.Get("firstName")),
		LastName:   strings.TrimSpace(r.PostForm.Get("lastName")),
		PostalCode: strings.TrimSpace(r.PostForm.Get("postalCode")),
		CartCount:  len(cartIDs(r)),
	}
	switch {
	case data.FirstName == "":
		data.Error = msgFirstName
	case data.LastName == "":
		data.Error = msgLastName
	case data.PostalCode == "":
		data.Error = msgPostalCode
	}
	if data.Error != "" {
		s.render(w, r, "checkout-step-one.html", http.StatusOK, data)
		return
	}
	http.Redirect(w, r, "/checkout-step-two.html", http.StatusSeeOther)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	products := cartProducts(r)
	var total float64
	for _, p := range products {
		total += p.Price
	}
	s.render(w, r, "checkout-step-two.html", http.StatusOK, pageData{
		Title:     "Checkout: Overview",
		Products:  products,
		CartCount: len(products),
		Subtotal:  fmt.Sprintf("$%.2f", total),
	})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	obs.From(r.Context()).Info("order placed", "pkg", "demoshop", "items", len(cartIDs(r)))
	clearCookie(w, CartCookie)
	http.Redirect(w, r, "/checkout-complete.html", http.StatusSeeOther)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "checkout-complete.html", http.StatusOK, pageData{Title: "Checkout: Complete!"})
}

// cartIDs reads the cart cookie written by the inventory page script.
// Unknown ids are dropped.
func cartIDs(r *http.Request) []string {
	c, err := r.Cookie(CartCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	var ids []string
	seen := map[string]bool{}
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if _, ok := ProductByID(id); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func cartProducts(r *http.Request) []Product {
	ids := cartIDs(r)
	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, _ := ProductByID(id)
		products = append(products, p)
	}
	return products
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}
