package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	receiptdomain "github.com/mocky70025/suiren/internal/receipt/domain"
)

type submitReceiptRequest struct {
	SellerID  snowflake.ID  `json:"seller_id"`
	Amount    int64         `json:"amount"`
	BuyerName string        `json:"buyer_name,omitempty"`
	BuyerID   *snowflake.ID `json:"buyer_id,omitempty"`
	Memo      string        `json:"memo,omitempty"`
}

func (s *Server) SubmitReceipt(c *gin.Context) {
	var req submitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receiptSvc.Submit(c.Request.Context(), receiptdomain.SubmitRequest{
		SellerID:  req.SellerID,
		Amount:    req.Amount,
		BuyerName: strings.TrimSpace(req.BuyerName),
		BuyerID:   req.BuyerID,
		Memo:      strings.TrimSpace(req.Memo),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPendingReceipts(c *gin.Context) {
	resp, err := s.receiptSvc.ListPending(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type processReceiptRequest struct {
	BuyerID snowflake.ID `json:"buyer_id"`
}

func (s *Server) ProcessReceipt(c *gin.Context) {
	receiptID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid receipt id"))
		return
	}

	var req processReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.receiptSvc.Process(c.Request.Context(), receiptID, req.BuyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) ListReceipts(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receiptSvc.List(c.Request.Context(), receiptdomain.ListReceiptRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
