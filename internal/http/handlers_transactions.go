package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type transactionRequest struct {
	Amount     core.Money `json:"amount"`
	Type       string     `json:"type" binding:"required"`
	CategoryID *int64     `json:"categoryId" binding:"omitempty,min=1"`
	Note       string     `json:"note" binding:"max=500"`
	Date       string     `json:"date" binding:"required"`
}

func (s *Server) bindTransaction(c *gin.Context) (services.TransactionInput, bool) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return services.TransactionInput{}, false
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		respondError(c, err)
		return services.TransactionInput{}, false
	}
	date, err := parseDate(req.Date, s.location, false)
	if err != nil {
		respondError(c, err)
		return services.TransactionInput{}, false
	}

	return services.TransactionInput{
		Amount:     req.Amount,
		Type:       typ,
		CategoryID: req.CategoryID,
		Note:       sanitizeInput(req.Note),
		Date:       date,
	}, true
}

// nullableID records whether categoryId was present so that an explicit
// null can clear the reference.
type nullableID struct {
	set bool
	id  *int64
}

func (n *nullableID) UnmarshalJSON(data []byte) error {
	n.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.id = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return core.Invalidf("categoryId must be an integer")
	}
	if id < 1 {
		return core.Invalidf("categoryId must be a positive integer")
	}
	n.id = &id
	return nil
}

// transactionPatchRequest is the PUT body. Omitted fields keep their
// stored value.
type transactionPatchRequest struct {
	Amount     *core.Money `json:"amount"`
	Type       *string     `json:"type"`
	CategoryID nullableID  `json:"categoryId"`
	Note       *string     `json:"note" binding:"omitempty,max=500"`
	Date       *string     `json:"date"`
}

func (s *Server) bindTransactionPatch(c *gin.Context) (services.TransactionPatch, bool) {
	var req transactionPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return services.TransactionPatch{}, false
	}

	patch := services.TransactionPatch{
		Amount:     req.Amount,
		CategoryID: services.OptionalID{Set: req.CategoryID.set, ID: req.CategoryID.id},
	}
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			respondError(c, err)
			return services.TransactionPatch{}, false
		}
		patch.Type = &typ
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date, s.location, false)
		if err != nil {
			respondError(c, err)
			return services.TransactionPatch{}, false
		}
		patch.Date = &date
	}
	if req.Note != nil {
		note := sanitizeInput(*req.Note)
		patch.Note = &note
	}
	return patch, true
}

// handleListTransactions serves GET /api/transactions
func (s *Server) handleListTransactions(c *gin.Context) {
	var (
		q   services.ListQuery
		err error
	)
	if q.Page, err = queryInt(c, "page", 1); err != nil {
		respondError(c, err)
		return
	}
	if q.Limit, err = queryInt(c, "limit", services.DefaultPageSize); err != nil {
		respondError(c, err)
		return
	}
	if q.Type, err = queryType(c, "type"); err != nil {
		respondError(c, err)
		return
	}
	if q.CategoryID, err = queryID(c, "categoryId"); err != nil {
		respondError(c, err)
		return
	}
	if q.From, err = queryDate(c, "startDate", s.location, false); err != nil {
		respondError(c, err)
		return
	}
	if q.To, err = queryDate(c, "endDate", s.location, true); err != nil {
		respondError(c, err)
		return
	}
	if userID, err := queryID(c, "userId"); err != nil {
		respondError(c, err)
		return
	} else if userID != nil {
		q.UserID = *userID
	}
	q.Search = sanitizeInput(c.Query("search"))

	page, err := s.transactions.List(c.Request.Context(), identityFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	if page.Transactions == nil {
		page.Transactions = []core.Transaction{}
	}
	c.JSON(http.StatusOK, page)
}

// handleGetTransaction serves GET /api/transactions/:id
func (s *Server) handleGetTransaction(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	tx, err := s.transactions.Get(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// handleCreateTransaction serves POST /api/transactions
func (s *Server) handleCreateTransaction(c *gin.Context) {
	in, ok := s.bindTransaction(c)
	if !ok {
		return
	}
	tx, err := s.transactions.Create(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "Transaction created successfully", gin.H{"transaction": tx})
}

// handleUpdateTransaction serves PUT /api/transactions/:id
func (s *Server) handleUpdateTransaction(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	patch, ok := s.bindTransactionPatch(c)
	if !ok {
		return
	}
	tx, err := s.transactions.Update(c.Request.Context(), identityFrom(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Transaction updated successfully", gin.H{"transaction": tx})
}

// handleDeleteTransaction serves DELETE /api/transactions/:id
func (s *Server) handleDeleteTransaction(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.transactions.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Transaction deleted successfully", nil)
}
