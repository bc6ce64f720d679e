package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type downloadRequest struct {
	Symbols []string `json:"symbols"`
}

type downloadResult struct {
	Symbol     string `json:"symbol"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
}

type downloadResponse struct {
	Results []downloadResult `json:"results"`
}

// Handler serves POST /download by running the command once per
// symbol, in request order.
type Handler struct {
	runner Runner
	log    *zap.Logger
}

func NewHandler(runner Runner, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runner: runner, log: log}
}

func (h *Handler) Download(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]downloadResult, 0, len(req.Symbols))
	for _, symbol := range req.Symbols {
		res, err := h.runner.Run(c.Request.Context(), symbol)
		if err != nil {
			h.log.Error("run failed", zap.String("symbol", symbol), zap.Error(err))
			res = &RunResult{Stderr: err.Error(), ReturnCode: -1}
		} else {
			h.log.Info("run finished",
				zap.String("symbol", symbol),
				zap.Int("returncode", res.ReturnCode),
			)
		}
		results = append(results, downloadResult{
			Symbol:     symbol,
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
			ReturnCode: res.ReturnCode,
		})
	}

	c.JSON(http.StatusOK, downloadResponse{Results: results})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", Health)
	r.POST("/download", h.Download)
	return r
}
