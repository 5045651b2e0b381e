package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/internal/reactdrop"
	"github.com/vrsc-tipbot/tipbot/internal/tipbot"
)

// NotificationRequest represents the JSON body for changing a notification preference
type NotificationRequest struct {
	Notification string `json:"notification" binding:"required"`
}

// DepositRequest is sent by the deposit watcher for every confirmed payment.
// Either Address or DiscordID identifies the account.
type DepositRequest struct {
	TxHash    string `json:"tx_hash" binding:"required"`
	Address   string `json:"address"`
	DiscordID string `json:"discord_id"`
	Amount    string `json:"amount" binding:"required"`
}

type WithdrawRequest struct {
	DiscordID string `json:"discord_id" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type Recipient struct {
	ID  string `json:"id" binding:"required"`
	Bot bool   `json:"bot"`
}

// TipRequest covers direct and role tips. Role members are resolved by the front-end.
type TipRequest struct {
	Sender     string      `json:"sender" binding:"required"`
	Recipients []Recipient `json:"recipients" binding:"required,dive"`
	Kind       string      `json:"kind" binding:"omitempty,oneof=tip-direct tip-role"`
	Amount     string      `json:"amount" binding:"required"`
	ChannelID  string      `json:"channel_id"`
}

type ReactdropRequest struct {
	Sender    string `json:"sender" binding:"required"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Time      int    `json:"time" binding:"required,min=1"`
	Unit      string `json:"unit" binding:"required"`
}

// AmountResponse renders an amount both for display and for machines.
type AmountResponse struct {
	Coins   string `json:"coins"`
	Sats    int64  `json:"sats"`
	Display string `json:"display"`
}

func amountResponse(a models.Amount) AmountResponse {
	return AmountResponse{Coins: a.Coins().String(), Sats: a.Sats(), Display: a.String()}
}

type WithdrawResponse struct {
	Success bool           `json:"success"`
	EventID string         `json:"event_id"`
	Amount  AmountResponse `json:"amount"`
	Fee     AmountResponse `json:"fee"`
	Opid    string         `json:"opid"`
	TxHash  string         `json:"tx_hash,omitempty"`
}

type TipResponse struct {
	Success        bool           `json:"success"`
	Outcome        string         `json:"outcome"`
	EventID        string         `json:"event_id,omitempty"`
	Total          AmountResponse `json:"total"`
	PerRecipient   AmountResponse `json:"per_recipient"`
	RecipientCount int            `json:"recipient_count"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// errorResponse maps a ledger error to a status and a short message for the user.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "Insufficient balance"
	case errors.Is(err, models.ErrAmountTooSmall):
		return http.StatusUnprocessableEntity, "Amount is too small to split between the recipients"
	case errors.Is(err, models.ErrArithmeticOverflow):
		return http.StatusBadRequest, "Amount is too large"
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, models.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid address"
	case errors.Is(err, models.ErrInvalidEmoji):
		return http.StatusBadRequest, "Invalid emoji"
	case errors.Is(err, reactdrop.ErrInvalidDuration):
		return http.StatusBadRequest, "Invalid duration"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrDepositAlreadyProcessed):
		return http.StatusConflict, "Deposit already processed"
	case errors.Is(err, models.ErrAddressGenerationFailed):
		return http.StatusBadGateway, "Could not create a deposit address, try again later"
	case errors.Is(err, models.ErrOperationFailed):
		return http.StatusBadGateway, "The node rejected the withdrawal, your balance was refunded"
	case errors.Is(err, models.ErrExternalDelivery):
		return http.StatusBadGateway, "Discord is not responding, try again later"
	}
	return http.StatusInternalServerError, "Something went wrong"
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

func (s *HTTPServer) badRequest(c *gin.Context, err error) {
	s.logger.Debug("Invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request body: " + err.Error(),
	})
}

// parsePositiveAmount parses a coin amount like "1.5".
func parsePositiveAmount(s string) (models.Amount, error) {
	amount, err := models.ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}
	return amount, nil
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) balance(c *gin.Context) {
	userID := c.Param("id")
	balance, err := s.tipbot.GetBalance(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"discord_id": userID,
		"balance":    amountResponse(balance),
	})
}

// createAddress returns the user's deposit address, creating it on first use.
func (s *HTTPServer) createAddress(c *gin.Context) {
	userID := c.Param("id")
	address, err := s.tipbot.GetOrCreateAddress(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"discord_id": userID,
		"address":    address,
	})
}

func (s *HTTPServer) setNotification(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	pref, err := models.ParseNotificationPreference(req.Notification)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.tipbot.SetNotificationPreference(c.Request.Context(), c.Param("id"), pref); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"notification": pref,
	})
}

// lookupAddress tells the deposit watcher which user owns an address.
func (s *HTTPServer) lookupAddress(c *gin.Context) {
	userID, ok, err := s.tipbot.ResolveUser(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		s.fail(c, models.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":    c.Param("address"),
		"discord_id": userID,
	})
}

func (s *HTTPServer) ingestDeposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Address == "" && req.DiscordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "address or discord_id is required",
		})
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}

	record, err := s.tipbot.IngestDeposit(c.Request.Context(), &models.Deposit{
		TxHash:  req.TxHash,
		Address: req.Address,
		UserID:  req.DiscordID,
		Amount:  amount,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"event_id":   record.UUID,
		"discord_id": record.DiscordID,
		"amount":     amountResponse(amount),
	})
}

func (s *HTTPServer) depositStatus(c *gin.Context) {
	processed, err := s.tipbot.IsDepositProcessed(c.Request.Context(), c.Param("tx_hash"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tx_hash":   c.Param("tx_hash"),
		"processed": processed,
	})
}

// event lists the journal records sharing one event id.
func (s *HTTPServer) event(c *gin.Context) {
	records, err := s.tipbot.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_id":     c.Param("id"),
		"transactions": records,
	})
}

func (s *HTTPServer) withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}

	w, err := s.tipbot.Withdraw(c.Request.Context(), req.DiscordID, req.Address, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Withdrawal requested", "discord_id", req.DiscordID, "address", req.Address, "amount", amount.String())
	c.JSON(http.StatusOK, WithdrawResponse{
		Success: true,
		EventID: w.EventID,
		Amount:  amountResponse(w.Amount),
		Fee:     amountResponse(w.Fee),
		Opid:    w.Opid,
		TxHash:  w.TxHash,
	})
}

func (s *HTTPServer) tip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	kind := models.ActionTipDirect
	if req.Kind != "" {
		kind = models.Action(req.Kind)
	}

	members := make([]tipbot.Member, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		members = append(members, tipbot.Member{ID: r.ID, Bot: r.Bot})
	}

	result, err := s.tipbot.Distribute(c.Request.Context(), &models.DistributionRequest{
		Sender:     req.Sender,
		Amount:     amount,
		Recipients: tipbot.FilterEligible(members),
		Kind:       kind,
		ChannelID:  req.ChannelID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TipResponse{
		Success:        true,
		Outcome:        string(result.Outcome),
		EventID:        result.EventID,
		Total:          amountResponse(result.Total),
		PerRecipient:   amountResponse(result.PerRecipient),
		RecipientCount: result.RecipientCount,
		Warnings:       result.Warnings,
	})
}

// startReactdrop answers as soon as the announcement is posted. The drop itself runs on.
func (s *HTTPServer) startReactdrop(c *gin.Context) {
	var req ReactdropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	unit, err := reactdrop.ParseUnit(req.Unit)
	if err != nil {
		s.fail(c, err)
		return
	}

	info, err := s.reactdrops.Start(c.Request.Context(), &reactdrop.Request{
		Sender:    req.Sender,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Emoji:     req.Emoji,
		Amount:    amount,
		Time:      req.Time,
		Unit:      unit,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, info)
}

func (s *HTTPServer) listReactdrops(c *gin.Context) {
	sessions, err := s.reactdrops.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactdrops": sessions})
}

func (s *HTTPServer) cancelReactdrop(c *gin.Context) {
	id := c.Param("id")
	if err := s.reactdrops.Cancel(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Reactdrop cancelled", "reactdrop", id)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reactdrop cancelled, nothing will be sent.",
	})
}
