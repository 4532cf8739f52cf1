// Package gatewaytest provides an in-process fake of the rental backend for
// tests of the gateway and everything built on it.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is the expiresIn the fake reports, in milliseconds.
const TokenLifetime = int64(time.Hour / time.Millisecond)

var signingKey = []byte("gatewaytest-signing-key")

// User is an account known to the fake.
type User struct {
	ID       string
	Email    string
	Password string
	FullName string
	Phone    string
	RoleID   string
}

// Order is a recorded create-order body.
type Order struct {
	ID         string  `json:"orderId"`
	UserID     string  `json:"userId"`
	ItemID     string  `json:"itemId"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	TotalPrice float64 `json:"totalPrice"`
}

// Upload is one received image file.
type Upload struct {
	ItemID   string
	Filename string
	Size     int
}

// Server is a fake backend. Its exported knobs may be set before or between
// requests; use the setters when requests may be in flight.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	nextID      int
	users       map[string]*User
	roles       []map[string]any
	items       []map[string]any
	orders      []Order
	uploads     []Upload
	failMe      bool
	failUpload  bool
	orderErrMsg string
	revoked     bool
	requests    []string
}

// New starts a fake seeded with the ADMIN, CUSTOMER and USER roles.
func New() *Server {
	s := &Server{
		nextID: 100,
		users:  make(map[string]*User),
		roles: []map[string]any{
			{"role_id": "1", "role_name": "ADMIN", "role_level": 1, "description": "Administrator"},
			{"role_id": "2", "role_name": "CUSTOMER", "role_level": 2, "description": "Customer"},
			{"role_id": "3", "role_name": "USER", "role_level": 3, "description": "Default"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/signup", s.signup)
	mux.HandleFunc("GET /v1/hars/user/me", s.authed(s.me))
	mux.HandleFunc("GET /v1/hars/roles/get/all", s.listRoles)
	mux.HandleFunc("GET /v1/hars/roles/get/{id}", s.authed(s.getRole))
	mux.HandleFunc("POST /v1/hars/roles/create", s.authed(s.saveRole))
	mux.HandleFunc("POST /v1/hars/roles/update", s.authed(s.saveRole))
	mux.HandleFunc("DELETE /v1/hars/roles/delete/{id}", s.authed(s.deleteRole))
	mux.HandleFunc("GET /v1/hars/rental/items/all", s.authed(s.listItems))
	mux.HandleFunc("GET /v1/hars/rental/items/user/{userId}", s.authed(s.listItemsByUser))
	mux.HandleFunc("GET /v1/hars/rental/items/{id}", s.authed(s.getItem))
	mux.HandleFunc("POST /v1/hars/rental/items/create", s.authed(s.createItem))
	mux.HandleFunc("PUT /v1/hars/rental/items/{id}", s.authed(s.updateItem))
	mux.HandleFunc("DELETE /v1/hars/rental/items/{id}", s.authed(s.deleteItem))
	mux.HandleFunc("POST /v1/hars/rental/items/{id}/upload-images", s.authed(s.uploadImages))
	mux.HandleFunc("POST /v1/hars/rental-orders/create", s.authed(s.createOrder))
	mux.HandleFunc("GET /v1/hars/rental-orders/{id}", s.authed(s.getOrder))
	mux.HandleFunc("GET /v1/hars/rental-orders/user/{userId}", s.authed(s.listOrdersByUser))

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.newIDLocked()
	}
	s.users[strings.ToLower(u.Email)] = &u
	return u.ID
}

// AddItem stores an item in the backend's primary field names and returns its id.
func (s *Server) AddItem(ownerID, name string, pricePerDay float64, available int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newIDLocked()
	s.items = append(s.items, map[string]any{
		"item_id":     id,
		"item_name":   name,
		"description": name + " for rent",
		"address":     "Warehouse 1",
		"amount":      pricePerDay,
		"available":   available,
		"user_id":     ownerID,
	})
	return id
}

// AddRawItem stores an item exactly as given, for field-variant tests.
func (s *Server) AddRawItem(item map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *Server) SetFailMe(fail bool) {
	s.mu.Lock()
	s.failMe = fail
	s.mu.Unlock()
}

func (s *Server) SetFailUpload(fail bool) {
	s.mu.Lock()
	s.failUpload = fail
	s.mu.Unlock()
}

// RevokeTokens makes every authenticated route answer 401 until reset.
func (s *Server) RevokeTokens(revoked bool) {
	s.mu.Lock()
	s.revoked = revoked
	s.mu.Unlock()
}

// SetCreateOrderError makes create-order answer 400 with msg. An empty msg
// restores success.
func (s *Server) SetCreateOrderError(msg string) {
	s.mu.Lock()
	s.orderErrMsg = msg
	s.mu.Unlock()
}

func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Requests lists "METHOD /path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Item returns a copy of the stored item with id.
func (s *Server) Item(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if fmt.Sprint(it["item_id"]) == id {
			cp := make(map[string]any, len(it))
			for k, v := range it {
				cp[k] = v
			}
			return cp, true
		}
	}
	return nil, false
}

// Token issues a bearer token for u the way login does.
func Token(u User, roleName string) string {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.FullName,
		"role":  roleName,
		"exp":   time.Now().Add(time.Duration(TokenLifetime) * time.Millisecond).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) newIDLocked() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

func (s *Server) roleNameLocked(id string) string {
	for _, r := range s.roles {
		if fmt.Sprint(r["role_id"]) == id {
			return fmt.Sprint(r["role_name"])
		}
	}
	return ""
}

func (s *Server) roleLocked(id string) map[string]any {
	for _, r := range s.roles {
		if fmt.Sprint(r["role_id"]) == id {
			return r
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return signingKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s.mu.Lock()
		revoked := s.revoked
		s.mu.Unlock()
		if revoked {
			writeMessage(w, http.StatusUnauthorized, "token expired")
			return
		}
		sub, _ := claims.GetSubject()
		next(w, r, sub)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(in.Email)]
	var role string
	if ok {
		role = s.roleNameLocked(u.RoleID)
	}
	s.mu.Unlock()
	if !ok || u.Password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": Token(*u, role), "expiresIn": TokenLifetime})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
		Phone    string `json:"phone"`
		Roles    struct {
			RoleID string `json:"role_id"`
		} `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(in.Email)]; exists {
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}
	if s.roleLocked(in.Roles.RoleID) == nil {
		writeMessage(w, http.StatusBadRequest, "Unknown role")
		return
	}
	u := &User{ID: s.newIDLocked(), Email: in.Email, Password: in.Password, FullName: in.FullName, Phone: in.Phone, RoleID: in.Roles.RoleID}
	s.users[strings.ToLower(u.Email)] = u
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":  u.ID,
		"email":    u.Email,
		"fullName": u.FullName,
		"phone":    u.Phone,
		"roles":    s.roleLocked(u.RoleID),
	})
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMe {
		writeMessage(w, http.StatusInternalServerError, "profile service unavailable")
		return
	}
	for _, u := range s.users {
		if u.ID == userID {
			writeJSON(w, http.StatusOK, map[string]any{
				"userId":   u.ID,
				"email":    u.Email,
				"fullName": u.FullName,
				"phone":    u.Phone,
				"roles":    s.roleLocked(u.RoleID),
			})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "User not found")
}

func (s *Server) listRoles(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.roles)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role := s.roleLocked(r.PathValue("id")); role != nil {
		writeJSON(w, http.StatusOK, role)
		return
	}
	writeMessage(w, http.StatusNotFound, "Role not found")
}

func (s *Server) saveRole(w http.ResponseWriter, r *http.Request, _ string) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	name, _ := in["role_name"].(string)
	if strings.TrimSpace(name) == "" {
		writeMessage(w, http.StatusBadRequest, "Role name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := in["role_id"].(string)
	if id == "" {
		in["role_id"] = s.newIDLocked()
		s.roles = append(s.roles, in)
		writeJSON(w, http.StatusCreated, in)
		return
	}
	for i, existing := range s.roles {
		if fmt.Sprint(existing["role_id"]) == id {
			s.roles[i] = in
			writeJSON(w, http.StatusOK, in)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Role not found")
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	for i, existing := range s.roles {
		if fmt.Sprint(existing["role_id"]) == id {
			s.roles = append(s.roles[:i], s.roles[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Role not found")
}

func (s *Server) listItems(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.items)
}

func (s *Server) listItemsByUser(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := r.PathValue("userId")
	out := []map[string]any{}
	for _, it := range s.items {
		if fmt.Sprint(it["user_id"]) == owner {
			out = append(out, it)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) itemIndexLocked(id string) int {
	for i, it := range s.items {
		if fmt.Sprint(it["item_id"]) == id {
			return i
		}
	}
	return -1
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.itemIndexLocked(r.PathValue("id")); i >= 0 {
		writeJSON(w, http.StatusOK, s.items[i])
		return
	}
	writeMessage(w, http.StatusNotFound, "Item not found")
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request, userID string) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in["item_id"] = s.newIDLocked()
	if owner, _ := in["user_id"].(string); owner == "" {
		in["user_id"] = userID
	}
	s.items = append(s.items, in)
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request, _ string) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	i := s.itemIndexLocked(id)
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Item not found")
		return
	}
	in["item_id"] = id
	if owner, _ := in["user_id"].(string); owner == "" {
		in["user_id"] = s.items[i]["user_id"]
	}
	s.items[i] = in
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.itemIndexLocked(r.PathValue("id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Item not found")
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadImages(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	fail := s.failUpload
	s.mu.Unlock()
	if fail {
		writeMessage(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	id := r.PathValue("id")
	var received []Upload
	var urls []string
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "unreadable file")
			return
		}
		n, _ := io.Copy(io.Discard, f)
		f.Close()
		received = append(received, Upload{ItemID: id, Filename: fh.Filename, Size: int(n)})
		urls = append(urls, "https://img.example.test/"+id+"/"+fh.Filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, received...)
	if i := s.itemIndexLocked(id); i >= 0 {
		existing, _ := s.items[i]["image_names"].(string)
		names := strings.Join(urls, ",")
		if existing != "" {
			names = existing + "," + names
		}
		s.items[i]["image_names"] = names
	}
	writeJSON(w, http.StatusOK, urls)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var in Order
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orderErrMsg != "" {
		writeMessage(w, http.StatusBadRequest, s.orderErrMsg)
		return
	}
	in.ID = s.newIDLocked()
	in.UserID = userID
	s.orders = append(s.orders, in)
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == r.PathValue("id") {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Order not found")
}

func (s *Server) listOrdersByUser(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for _, o := range s.orders {
		if o.UserID == r.PathValue("userId") {
			out = append(out, o)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
