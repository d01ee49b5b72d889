package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/internal/handler/middleware"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/internal/websocket"
	"github.com/melihalgin1/CryptoVault/lib/errs"
)

type addCoinRequest struct {
	ID string `json:"id" binding:"required"`
}

type holdingRequest struct {
	Quantity string `json:"quantity"`
}

type currencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *Handler) getView(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).View())
}

func (h *Handler) addCoin(c *gin.Context) {
	var req addCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	ctrl := h.controller(c)
	if _, added := ctrl.AddCoin(req.ID); !added {
		c.JSON(http.StatusOK, ctrl.View())
		return
	}
	c.JSON(http.StatusCreated, ctrl.View())
}

func (h *Handler) removeCoin(c *gin.Context) {
	ctrl := h.controller(c)
	if !ctrl.RemoveCoin(c.Param("id")) {
		h.writeError(c, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) setHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	ctrl := h.controller(c)
	ctrl.SetHolding(c.Param("id"), req.Quantity)
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) setCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	cur, err := coin.ParseCurrency(req.Currency)
	if err != nil {
		h.badRequest(c)
		return
	}

	ctrl := h.controller(c)
	ctrl.SetCurrency(cur)
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	lang, ok := i18n.Parse(req.Language)
	if !ok {
		h.badRequest(c)
		return
	}

	ctrl := h.controller(c)
	ctrl.SetLanguage(lang)
	middleware.SetLanguageCookie(c, h.cfg, lang)
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) retryPrices(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.RetryPrices()
	c.JSON(http.StatusAccepted, ctrl.View())
}

func (h *Handler) openDetail(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.OpenDetail(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) closeDetail(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.CloseDetail()
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) openAccount(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.OpenAccount(); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) closeAccount(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.CloseAccount()
	c.JSON(http.StatusOK, ctrl.View())
}

// reload retries a failed account load.
func (h *Handler) reload(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.Reload(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) wsConnect(c *gin.Context) {
	ctrl := h.controller(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := websocket.NewClient(h.wsManager, conn, ctrl.ID())
	client.Attach(ctrl.Subscribe(client.Push))
	h.wsManager.Register(client)

	go client.Writer()
	go client.Reader()

	client.Push(ctrl.View())
}
