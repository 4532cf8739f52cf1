package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"rental-console/internal/auth"

	"go.uber.org/zap"
)

// StatCard is one tile on the dashboard.
type StatCard struct {
	Name  string
	Value string
	Href  string
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Page
	Cards         []StatCard
	ShowAdminCard bool
}

// Dashboard renders stat cards. The Roles card and quick action appear only
// for admins; counts that fail to load show as "0".
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	showAdmin := auth.CanViewAdminCard(sess)
	ctx := r.Context()
	log := h.logger(r)

	var (
		wg                        sync.WaitGroup
		roles, items, ordersCount = -1, -1, -1
	)
	count := func(dst *int, what string, fn func(context.Context) (int, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := fn(ctx)
			if err != nil {
				log.Warn("dashboard count unavailable", zap.String("card", what), zap.Error(err))
				return
			}
			*dst = n
		}()
	}

	if showAdmin {
		count(&roles, "roles", func(ctx context.Context) (int, error) {
			rs, err := h.backend.ListRoles(ctx, sess.BearerToken)
			return len(rs), err
		})
	}
	count(&items, "items", func(ctx context.Context) (int, error) {
		is, err := h.backend.ListItems(ctx, sess.BearerToken)
		return len(is), err
	})
	if sess.UserID != "" {
		count(&ordersCount, "orders", func(ctx context.Context) (int, error) {
			os, err := h.backend.ListOrdersByUser(ctx, sess.BearerToken, sess.UserID)
			return len(os), err
		})
	}
	wg.Wait()

	var cards []StatCard
	if showAdmin {
		cards = append(cards, StatCard{Name: "Total Roles", Value: countLabel(roles), Href: "/roles"})
	}
	cards = append(cards,
		StatCard{Name: "Rental Items", Value: countLabel(items), Href: "/items?scope=all"},
		StatCard{Name: "Orders", Value: countLabel(ordersCount), Href: "/your-orders"},
		StatCard{Name: "Users", Value: "0", Href: "#"},
	)

	h.render(w, r, "dashboard.html", DashboardViewModel{
		Page:          newPage(r, "Dashboard"),
		Cards:         cards,
		ShowAdminCard: showAdmin,
	})
}

func countLabel(n int) string {
	if n < 0 {
		return "0"
	}
	return strconv.Itoa(n)
}
