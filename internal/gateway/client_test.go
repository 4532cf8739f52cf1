package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rental-console/internal/gateway"
	"rental-console/internal/gateway/gatewaytest"
	"rental-console/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type GatewayTestSuite struct {
	suite.Suite
	backend *gatewaytest.Server
	client  *gateway.Client
	ctx     context.Context
	token   string
	userID  string
}

func (s *GatewayTestSuite) SetupTest() {
	s.backend = gatewaytest.New()
	c, err := gateway.New(gateway.Config{
		BaseURL:    s.backend.URL + "/",
		Registerer: prometheus.NewRegistry(),
	}, zaptest.NewLogger(s.T()))
	s.Require().NoError(err)
	s.client = c
	s.ctx = context.Background()

	s.userID = s.backend.AddUser(gatewaytest.User{Email: "ann@example.com", Password: "secret1", FullName: "Ann", RoleID: "2"})
	login, err := s.client.Login(s.ctx, "ann@example.com", "secret1")
	s.Require().NoError(err)
	s.token = login.Token
}

func (s *GatewayTestSuite) TearDownTest() {
	s.backend.Close()
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) TestLoginReturnsTokenAndLifetime() {
	resp, err := s.client.Login(s.ctx, "ann@example.com", "secret1")
	s.Require().NoError(err)
	s.NotEmpty(resp.Token)
	s.Equal(gatewaytest.TokenLifetime, resp.ExpiresIn)
}

func (s *GatewayTestSuite) TestLoginFailureCarriesBackendMessage() {
	_, err := s.client.Login(s.ctx, "ann@example.com", "wrong")
	s.Require().Error(err)

	var apiErr *gateway.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnauthorized, apiErr.Status)
	s.Equal("Invalid email or password", gateway.MessageOf(err, "fallback"))
	s.True(gateway.IsUnauthorized(err))
}

func (s *GatewayTestSuite) TestMeNormalizesCamelCaseUserID() {
	u, err := s.client.Me(s.ctx, s.token)
	s.Require().NoError(err)
	s.Equal(s.userID, u.ID)
	s.Equal("Ann", u.FullName)
	s.Equal("CUSTOMER", u.RoleName())
}

func (s *GatewayTestSuite) TestSignupSendsRoleAndReportsConflict() {
	u, err := s.client.Signup(s.ctx, models.SignupRequest{
		Email: "bob@example.com", Password: "hunter2", FullName: "Bob", RoleID: "1",
	})
	s.Require().NoError(err)
	s.NotEmpty(u.ID)
	s.Equal("ADMIN", u.RoleName())

	_, err = s.client.Signup(s.ctx, models.SignupRequest{Email: "bob@example.com", Password: "x", RoleID: "1"})
	s.True(gateway.IsConflict(err))
}

func (s *GatewayTestSuite) TestListRolesWithoutToken() {
	roles, err := s.client.ListRoles(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(roles, 3)
	s.Equal("ADMIN", roles[0].Name)
	s.Equal("1", roles[0].ID)
	s.Require().NotNil(roles[0].Level)
	s.Equal(1, *roles[0].Level)
}

func (s *GatewayTestSuite) TestRoleCRUD() {
	created, err := s.client.CreateRole(s.ctx, s.token, models.Role{Name: "AUDITOR", Description: "Reads"})
	s.Require().NoError(err)
	s.Require().NotEmpty(created.ID)

	created.Description = "Reads everything"
	_, err = s.client.UpdateRole(s.ctx, s.token, *created)
	s.Require().NoError(err)

	got, err := s.client.GetRole(s.ctx, s.token, created.ID)
	s.Require().NoError(err)
	s.Equal("Reads everything", got.Description)

	s.Require().NoError(s.client.DeleteRole(s.ctx, s.token, created.ID))
	_, err = s.client.GetRole(s.ctx, s.token, created.ID)
	s.Equal("Role not found", gateway.MessageOf(err, ""))
}

func (s *GatewayTestSuite) TestItemFieldVariantsAreNormalized() {
	s.backend.AddRawItem(map[string]any{
		"item_id":          7,
		"item_name":        "Tent",
		"item_description": "Four person",
		"item_location":    "Depot",
		"item_price":       "45.5",
		"available":        -3,
		"item_images":      []string{"a.jpg"},
		"userId":           "owner-9",
	})
	s.backend.AddRawItem(map[string]any{
		"item_id":     "8",
		"item_name":   "Kayak",
		"description": "Primary",
		"address":     "Lake",
		"amount":      80,
		"item_price":  1,
		"available":   2,
		"image_names": " x.jpg, ,y.jpg ,",
		"user_id":     "owner-1",
	})

	items, err := s.client.ListItems(s.ctx, s.token)
	s.Require().NoError(err)
	s.Require().Len(items, 2)

	tent := items[0]
	s.Equal("7", tent.ID)
	s.Equal("Four person", tent.Description)
	s.Equal("Depot", tent.Location)
	s.Equal(45.5, tent.PricePerDay)
	s.Equal(0, tent.AvailableCount)
	s.False(tent.Available())
	s.Equal([]string{"a.jpg"}, tent.Images)
	s.Equal("owner-9", tent.OwnerUserID)

	kayak := items[1]
	s.Equal("Primary", kayak.Description)
	s.Equal("Lake", kayak.Location)
	s.Equal(80.0, kayak.PricePerDay)
	s.Equal(2, kayak.AvailableCount)
	s.Equal([]string{"x.jpg", "y.jpg"}, kayak.Images)
}

func (s *GatewayTestSuite) TestNegativeItemPriceIsClamped() {
	s.backend.AddRawItem(map[string]any{"item_id": "1", "item_name": "Ladder", "amount": -20, "available": 1})
	s.backend.AddRawItem(map[string]any{"item_id": "2", "item_name": "Saw", "item_price": "-0.5", "available": 1})
	s.backend.AddRawItem(map[string]any{"item_id": "3", "item_name": "Jack", "amount": "NaN", "available": 1})

	items, err := s.client.ListItems(s.ctx, s.token)
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	for _, it := range items {
		s.Equal(0.0, it.PricePerDay, it.Name)
	}

	item, err := s.client.GetItem(s.ctx, s.token, "1")
	s.Require().NoError(err)
	s.Equal(0.0, item.PricePerDay)
}

func (s *GatewayTestSuite) TestItemWritesUsePrimaryNames() {
	saved, err := s.client.CreateItem(s.ctx, s.token, models.RentalItem{
		Name: "Drill", Description: "Cordless", Location: "Shed", PricePerDay: 12.5, AvailableCount: 3, OwnerUserID: s.userID,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(saved.ID)

	raw, ok := s.backend.Item(saved.ID)
	s.Require().True(ok)
	s.Equal("Cordless", raw["description"])
	s.Equal("Shed", raw["address"])
	s.Equal(12.5, raw["amount"])
	s.Equal(3.0, raw["available"])
	s.Equal(s.userID, raw["user_id"])

	saved.PricePerDay = 20
	_, err = s.client.UpdateItem(s.ctx, s.token, *saved)
	s.Require().NoError(err)
	got, err := s.client.GetItem(s.ctx, s.token, saved.ID)
	s.Require().NoError(err)
	s.Equal(20.0, got.PricePerDay)

	mine, err := s.client.ListItemsByOwner(s.ctx, s.token, s.userID)
	s.Require().NoError(err)
	s.Len(mine, 1)

	s.Require().NoError(s.client.DeleteItem(s.ctx, s.token, saved.ID))
	_, ok = s.backend.Item(saved.ID)
	s.False(ok)
}

func (s *GatewayTestSuite) TestUploadImagesSendsEveryFileInOneForm() {
	id := s.backend.AddItem(s.userID, "Ladder", 10, 1)

	urls, err := s.client.UploadImages(s.ctx, s.token, id, []gateway.ImageFile{
		{Filename: "front.jpg", ContentType: "image/jpeg", Body: strings.NewReader("aaa")},
		{Filename: "back.png", Body: strings.NewReader("bbbb")},
	})
	s.Require().NoError(err)
	s.Len(urls, 2)

	uploads := s.backend.Uploads()
	s.Require().Len(uploads, 2)
	s.Equal("front.jpg", uploads[0].Filename)
	s.Equal(3, uploads[0].Size)
	s.Equal("back.png", uploads[1].Filename)

	item, err := s.client.GetItem(s.ctx, s.token, id)
	s.Require().NoError(err)
	s.Len(item.Images, 2)

	var uploadCalls int
	for _, r := range s.backend.Requests() {
		if strings.HasSuffix(r, "/upload-images") {
			uploadCalls++
		}
	}
	s.Equal(1, uploadCalls)
}

func (s *GatewayTestSuite) TestCreateOrderAndListByUser() {
	id := s.backend.AddItem("owner", "Drill", 200, 1)

	order, err := s.client.CreateOrder(s.ctx, s.token, models.BookingRequest{
		ItemID: id, StartDate: "2025-11-01", EndDate: "2025-11-03", TotalPrice: 600,
	})
	s.Require().NoError(err)
	s.NotEmpty(order.ID)
	s.Equal("Pending", order.Status())

	got, err := s.client.GetOrder(s.ctx, s.token, order.ID)
	s.Require().NoError(err)
	s.Equal(600.0, got.TotalPrice)

	orders, err := s.client.ListOrdersByUser(s.ctx, s.token, s.userID)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(id, orders[0].ItemID)
}

func (s *GatewayTestSuite) TestAuthenticatedCallsRequireToken() {
	_, err := s.client.ListItems(s.ctx, "")
	s.True(gateway.IsUnauthorized(err))
}

func (s *GatewayTestSuite) TestGetOrderErrors() {
	_, err := s.client.GetOrder(s.ctx, s.token, "missing")
	var apiErr *gateway.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusNotFound, apiErr.Status)
	s.False(gateway.IsUnauthorized(err))

	s.backend.RevokeTokens(true)
	_, err = s.client.GetOrder(s.ctx, s.token, "missing")
	s.True(gateway.IsUnauthorized(err))
	s.Equal("token expired", gateway.MessageOf(err, "fallback"))
}

func (s *GatewayTestSuite) TestRequestsAreCounted() {
	_, err := s.client.ListItems(s.ctx, s.token)
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.client.Requests().WithLabelValues("ListItems", "200")))
	s.Equal(1.0, testutil.ToFloat64(s.client.Requests().WithLabelValues("Login", "200")))
}

func TestAPIErrorFallsBackToErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Item is not available"}`))
	}))
	defer srv.Close()

	c, err := gateway.New(gateway.Config{BaseURL: srv.URL, Registerer: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), "tok", models.BookingRequest{ItemID: "1"})
	assert.Equal(t, "Item is not available", gateway.MessageOf(err, "Failed to create order"))
}

func TestMessageOfFallsBackWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := gateway.New(gateway.Config{BaseURL: srv.URL, Registerer: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)

	_, err = c.ListItems(context.Background(), "tok")
	assert.Equal(t, "Failed to load", gateway.MessageOf(err, "Failed to load"))
}

func TestTransportFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := gateway.New(gateway.Config{BaseURL: url, Registerer: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)

	_, err = c.ListItems(context.Background(), "tok")
	assert.True(t, errors.Is(err, gateway.ErrTransport))
	assert.Equal(t, "fallback", gateway.MessageOf(err, "fallback"))
}

func TestUploadImagesPlainMessageReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Images uploaded successfully"))
	}))
	defer srv.Close()

	c, err := gateway.New(gateway.Config{BaseURL: srv.URL, Registerer: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)

	urls, err := c.UploadImages(context.Background(), "tok", "1", []gateway.ImageFile{{Filename: "a.jpg", Body: strings.NewReader("x")}})
	require.NoError(t, err)
	assert.Nil(t, urls)
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := gateway.New(gateway.Config{BaseURL: "  "}, nil)
	assert.Error(t, err)
}

func TestRequestsCarryBearerAndAccept(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := gateway.New(gateway.Config{BaseURL: srv.URL, Registerer: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)

	_, err = c.ListItems(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", seen.Get("Authorization"))
	assert.Equal(t, "application/json", seen.Get("Accept"))
}
