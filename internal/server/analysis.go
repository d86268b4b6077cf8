package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	receiptdomain "github.com/mocky70025/suiren/internal/receipt/domain"
)

type analyzeScreenshotRequest struct {
	Image string `json:"image"`
}

type analyzeScreenshotResponse struct {
	Candidates []receiptdomain.MatchedCandidate `json:"candidates"`
	Result     receiptdomain.BatchResult        `json:"result"`
}

// AnalyzeScreenshot runs a payment-app screenshot through the vision
// collaborator, matches the extracted transactions against users and
// pending receipts, then applies the matches with per-item isolation.
func (s *Server) AnalyzeScreenshot(c *gin.Context) {
	var req analyzeScreenshotRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		AbortWithError(c, newValidationError("image", "invalid_image", "image is required"))
		return
	}

	extracted, err := s.vision.Analyze(c.Request.Context(), strings.TrimSpace(req.Image))
	if err != nil {
		s.obsMetrics.RecordExternalCallError("vision")
		AbortWithError(c, err)
		return
	}

	candidates := make([]receiptdomain.CandidateTransaction, 0, len(extracted))
	for _, tx := range extracted {
		candidates = append(candidates, receiptdomain.CandidateTransaction{
			Amount:     tx.Amount,
			SenderName: strings.TrimSpace(tx.SenderName),
			Date:       strings.TrimSpace(tx.Date),
			Memo:       strings.TrimSpace(tx.Memo),
		})
	}

	matched, err := s.receiptSvc.MatchCandidates(c.Request.Context(), candidates)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.receiptSvc.ApplyCandidates(c.Request.Context(), matched)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": analyzeScreenshotResponse{
		Candidates: matched,
		Result:     result,
	}})
}
