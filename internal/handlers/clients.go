package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// ClientHandler handles client, property, tenant and integration
// routes.
type ClientHandler struct {
	Clients *services.ClientService
	Sync    *services.SyncService
}

// List handles GET /api/clients
func (h *ClientHandler) List(c *fiber.Ctx) error {
	result, err := h.Clients.List(principal(c))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listClients")
	}
	return ok(c, result)
}

// Get handles GET /api/clients/:id
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	result, err := h.Clients.Get(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getClient")
	}
	return ok(c, result)
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var client models.PropertyMgmtClient
	if err := c.BodyParser(&client); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Clients.Create(principal(c), client)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createClient")
	}
	return created(c, result)
}

// Update handles PUT /api/clients/:id
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	var body struct {
		Name           *string `json:"name"`
		PrimaryContact *string `json:"primaryContact"`
		Email          *string `json:"email"`
		Phone          *string `json:"phone"`
		Address        *string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if body.Name != nil {
		updates["name"] = *body.Name
	}
	if body.PrimaryContact != nil {
		updates["primary_contact"] = *body.PrimaryContact
	}
	if body.Email != nil {
		updates["email"] = *body.Email
	}
	if body.Phone != nil {
		updates["phone"] = *body.Phone
	}
	if body.Address != nil {
		updates["address"] = *body.Address
	}

	result, err := h.Clients.Update(principal(c), c.Params("id"), updates)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "updateClient")
	}
	return ok(c, result)
}

// CreateUser handles POST /api/clients/:id/users
func (h *ClientHandler) CreateUser(c *fiber.Ctx) error {
	var user models.ClientUser
	if err := c.BodyParser(&user); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Clients.CreateClientUser(principal(c), c.Params("id"), user)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createClientUser")
	}
	return created(c, result)
}

// ListProperties handles GET /api/properties
func (h *ClientHandler) ListProperties(c *fiber.Ctx) error {
	result, err := h.Clients.ListProperties(principal(c), c.Query("clientId"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listProperties")
	}
	return ok(c, result)
}

// GetProperty handles GET /api/properties/:id
func (h *ClientHandler) GetProperty(c *fiber.Ctx) error {
	result, err := h.Clients.GetProperty(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getProperty")
	}
	return ok(c, result)
}

// ListTenants handles GET /api/tenants
func (h *ClientHandler) ListTenants(c *fiber.Ctx) error {
	result, err := h.Clients.ListTenants(principal(c), c.Query("propertyId"), c.QueryBool("active", false))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listTenants")
	}
	return ok(c, result)
}

// CreateIntegration handles POST /api/clients/:id/integrations
func (h *ClientHandler) CreateIntegration(c *fiber.Ctx) error {
	var input services.CreateIntegrationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ValidationResponse(c, "Invalid request body")
	}
	result, err := h.Clients.CreateIntegration(principal(c), c.Params("id"), input)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest, "createIntegration")
	}
	return created(c, result)
}

// ListIntegrations handles GET /api/clients/:id/integrations
func (h *ClientHandler) ListIntegrations(c *fiber.Ctx) error {
	result, err := h.Clients.ListIntegrations(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "listIntegrations")
	}
	return ok(c, result)
}

// DeleteIntegration handles DELETE /api/integrations/:id
func (h *ClientHandler) DeleteIntegration(c *fiber.Ctx) error {
	if err := h.Clients.DeleteIntegration(principal(c), c.Params("id")); err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "deleteIntegration")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TestIntegration handles POST /api/integrations/:id/test
func (h *ClientHandler) TestIntegration(c *fiber.Ctx) error {
	integration, err := h.Clients.GetIntegration(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "testIntegration")
	}
	if err := h.Sync.TestConnection(c.Context(), integration.ID); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, "testIntegration")
	}
	return ok(c, fiber.Map{"status": models.IntegrationConnected})
}

// TriggerSync handles POST /api/integrations/:id/sync. The sync runs in
// the background; callers poll the integration row for completion.
func (h *ClientHandler) TriggerSync(c *fiber.Ctx) error {
	integration, err := h.Clients.GetIntegration(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "triggerSync")
	}
	if integration.LastSyncStatus != nil && *integration.LastSyncStatus == models.SyncInProgress {
		return svcError(c, services.ErrSyncInProgress, fiber.StatusConflict, "triggerSync")
	}

	go func(id string) {
		_ = h.Sync.Sync(context.Background(), id)
	}(integration.ID)

	return accepted(c, "Sync started", "/api/integrations/"+integration.ID)
}

// GetIntegration handles GET /api/integrations/:id, the poll target for
// sync triggers.
func (h *ClientHandler) GetIntegration(c *fiber.Ctx) error {
	result, err := h.Clients.GetIntegration(principal(c), c.Params("id"))
	if err != nil {
		return svcError(c, err, fiber.StatusInternalServerError, "getIntegration")
	}
	return ok(c, result)
}
