package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/membership"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
)

const (
	msgSubscriptionExists = "Subscription already exists."
	msgSubscriptionAbsent = "You are not subscribed to this author."
	msgSelfSubscription   = "You cannot subscribe to yourself."
)

// recipesLimit reads recipes_limit; anything but a plain non-negative integer means no limit.
func recipesLimit(c *gin.Context) int {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return serializers.NoLimit
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return serializers.NoLimit
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return serializers.NoLimit
	}
	return n
}

// Subscriptions lists the authors the caller follows
// @Summary List subscriptions
// @Description Followed authors with their newest recipes and recipe count
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes embedded per author"
// @Success 200 {object} SubscriptionPage
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /users/subscriptions/ [get]
func (h *Handler) Subscriptions(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	page := pagination.FromRequest(c, h.PageSize)
	followed := membership.Subscriptions(h.db)

	var count int64
	if err := h.db.Model(&models.User{}).Where("id IN (?)", followed.TargetsQuery(userID)).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := page.Check(count); err != nil {
		apierror.Detail(c, http.StatusNotFound, "Invalid page.")
		return
	}

	var authors []models.User
	query := h.db.Where("id IN (?)", followed.TargetsQuery(userID)).Order("username, id")
	if err := page.Apply(query).Find(&authors).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	results, err := h.serializer(c).Subscriptions(authors, recipesLimit(c))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, page, count, results))
}

// Subscribe follows an author
// @Summary Subscribe to an author
// @Tags users
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes embedded in the response"
// @Success 201 {object} serializers.SubscriptionResponse
// @Failure 400 {object} map[string]string "Already subscribed or self"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /users/{id}/subscribe/ [post]
func (h *Handler) Subscribe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	author, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if author.ID == userID {
		metrics.RecordMembership("subscription", "add", "self")
		apierror.Respond(c, apierror.State(msgSelfSubscription))
		return
	}

	if err := membership.Subscriptions(h.db).Add(userID, author.ID); err != nil {
		if errors.Is(err, membership.ErrExists) {
			metrics.RecordMembership("subscription", "add", "exists")
			apierror.Respond(c, apierror.State(msgSubscriptionExists))
			return
		}
		apierror.Respond(c, err)
		return
	}
	metrics.RecordMembership("subscription", "add", "ok")

	results, err := h.serializer(c).Subscriptions([]models.User{author}, recipesLimit(c))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

// Unsubscribe stops following an author
// @Summary Unsubscribe from an author
// @Tags users
// @Param id path int true "Author ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not subscribed"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /users/{id}/subscribe/ [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	author, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := membership.Subscriptions(h.db).Remove(userID, author.ID); err != nil {
		if errors.Is(err, membership.ErrNotMember) {
			metrics.RecordMembership("subscription", "remove", "absent")
			apierror.Respond(c, apierror.State(msgSubscriptionAbsent))
			return
		}
		apierror.Respond(c, err)
		return
	}

	metrics.RecordMembership("subscription", "remove", "ok")
	c.Status(http.StatusNoContent)
}
