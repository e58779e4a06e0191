// Shared HTTP plumbing for the API handlers.
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
)

// userKey is the gin context key holding the authenticated *db.User.
const userKey = "threadgate.user"

// respondError writes the error envelope, classifying known sentinel
// errors first so nothing raw reaches the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		err = models.NewAPIError(models.KindNotFound, "conversation not found")
	case errors.Is(err, service.ErrAssistantNotFound):
		err = models.NewAPIError(models.KindNotFound, "assistant not found")
	case errors.Is(err, service.ErrSessionInvalid):
		err = models.NewAPIError(models.KindUnauthorized, "session invalid or expired")
	case errors.Is(err, service.ErrInvalidCredentials):
		err = models.NewAPIError(models.KindUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrEmailTaken):
		err = models.NewAPIError(models.KindValidation, "email already registered")
	}

	apiErr := models.AsAPIError(err)
	c.JSON(apiErr.HTTPStatus(), models.ErrorResponse{Error: apiErr})
}

// currentUser returns the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) *db.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*db.User); ok {
			return user
		}
	}
	return nil
}

// clientFor builds a provider client billed to the user's own API key,
// falling back to the server-wide key when the user has none stored.
func clientFor(factory provider.Factory, user *db.User) provider.Client {
	apiKey := ""
	if user != nil {
		apiKey = user.APIKey
	}
	return factory(apiKey)
}
